// Package crypto implements the handshake and at-rest cryptographic
// primitives this module's connections use: anonymous Diffie-Hellman key
// agreement, Blowfish encryption of the negotiated session, and the
// "CHED"-framed file format used to protect configuration at rest.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
)

// DHKeyHexSize is the hex-encoded width of the Diffie-Hellman prime: a
// 1024-bit group encoded as 256 hex characters.
const DHKeyHexSize = 256

// DHSharedDataSize is the fixed byte width of a derived shared secret,
// zero-padded on the left when the raw modular-exponentiation result is
// shorter.
const DHSharedDataSize = 128

// dhGenerator is the group generator, fixed at 2 for every handshake.
var dhGenerator = big.NewInt(2)

// ErrShortPrime is returned when a hex-encoded prime does not decode to the
// expected bit width.
var ErrShortPrime = errors.New("crypto: diffie-hellman prime is not 1024 bits")

// Params is a Diffie-Hellman group: a shared prime and the fixed generator.
// Every connection accepted by one server shares the same Params, generated
// once at startup or loaded from a pinned configuration value (see
// SPEC_FULL.md's "DH prime pinning" supplement).
type Params struct {
	Prime     *big.Int
	Generator *big.Int
}

// GenerateParams produces a fresh random 1024-bit probable prime and pairs
// it with the fixed generator. Unlike a safe-prime DH group generator, this
// does not verify (p-1)/2 is itself prime; for the anonymous, ephemeral key
// agreement this handshake uses, a probable prime of the right bit width is
// sufficient and matches the "generate once per server start" usage the
// original makes of it.
func GenerateParams() (*Params, error) {
	prime, err := rand.Prime(rand.Reader, DHKeyHexSize*4)
	if err != nil {
		return nil, err
	}
	return &Params{Prime: prime, Generator: dhGenerator}, nil
}

// LoadParamsHex reconstructs Params from a pinned, persisted prime, encoded
// as exactly DHKeyHexSize hex characters.
func LoadParamsHex(primeHex string) (*Params, error) {
	if len(primeHex) != DHKeyHexSize {
		return nil, ErrShortPrime
	}
	raw, err := hex.DecodeString(primeHex)
	if err != nil {
		return nil, err
	}
	prime := new(big.Int).SetBytes(raw)
	if prime.BitLen() == 0 || prime.BitLen() > DHKeyHexSize*4 {
		return nil, ErrShortPrime
	}
	return &Params{Prime: prime, Generator: dhGenerator}, nil
}

// PrimeHex renders the prime as a fixed-width, left-zero-padded hex string
// of exactly DHKeyHexSize characters — the wire and persisted form.
func (p *Params) PrimeHex() string {
	return padHex(p.Prime, DHKeyHexSize)
}

// SaveToBytes renders Params as two fixed-width, left-zero-padded big-endian
// byte strings concatenated together (prime, then generator), each
// DHKeyHexSize/2 bytes wide — the raw-byte counterpart of PrimeHex. The
// lobby server itself persists the prime as hex (PrimeHex), not through this
// encoding.
func (p *Params) SaveToBytes() []byte {
	const width = DHKeyHexSize / 2
	out := make([]byte, 2*width)
	copy(out[:width], padBytes(p.Prime, width))
	copy(out[width:], padBytes(p.Generator, width))
	return out
}

// LoadFromBytes reconstructs Params from the byte encoding SaveToBytes
// produces.
func LoadFromBytes(b []byte) (*Params, error) {
	const width = DHKeyHexSize / 2
	if len(b) != 2*width {
		return nil, ErrShortPrime
	}
	prime := new(big.Int).SetBytes(b[:width])
	generator := new(big.Int).SetBytes(b[width:])
	if prime.BitLen() == 0 || prime.BitLen() > DHKeyHexSize*4 {
		return nil, ErrShortPrime
	}
	return &Params{Prime: prime, Generator: generator}, nil
}

// Clone copies only the group's Prime and Generator. It never copies any
// KeyPair's private or public values — those are always generated fresh per
// connection via GenerateKeyPair, even when every connection on a server
// shares the same cloned group.
func Clone(p *Params) *Params {
	return &Params{
		Prime:     new(big.Int).Set(p.Prime),
		Generator: new(big.Int).Set(p.Generator),
	}
}

// KeyPair is one side's ephemeral Diffie-Hellman contribution: a private
// exponent and the corresponding public value, both scoped to one Params
// group.
type KeyPair struct {
	Params  *Params
	private *big.Int
	Public  *big.Int
}

// GenerateKeyPair draws a private exponent uniformly from [2, prime-2] and
// computes the corresponding public value generator^private mod prime.
func (p *Params) GenerateKeyPair() (*KeyPair, error) {
	upperBound := new(big.Int).Sub(p.Prime, big.NewInt(3))
	private, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return nil, err
	}
	private.Add(private, big.NewInt(2))

	public := new(big.Int).Exp(p.Generator, private, p.Prime)
	return &KeyPair{Params: p, private: private, Public: public}, nil
}

// PublicHex renders the public value as a fixed-width, left-zero-padded hex
// string of exactly DHKeyHexSize characters, matching the wire handshake's
// encoding of the public contribution.
func (kp *KeyPair) PublicHex() string {
	return padHex(kp.Public, DHKeyHexSize)
}

// PublicFromHex decodes a peer's public contribution from the wire's
// fixed-width hex encoding.
func PublicFromHex(s string) (*big.Int, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

// SharedSecret computes peerPublic^private mod prime and returns it as a
// fixed DHSharedDataSize-byte big-endian value, left-zero-padded.
func (kp *KeyPair) SharedSecret(peerPublic *big.Int) []byte {
	shared := new(big.Int).Exp(peerPublic, kp.private, kp.Params.Prime)
	return padBytes(shared, DHSharedDataSize)
}

// BlowfishKeyFromShared derives the 8-byte Blowfish session key from a
// Diffie-Hellman shared secret by taking its first 8 bytes, matching the
// original's key schedule.
func BlowfishKeyFromShared(shared []byte) [8]byte {
	var key [8]byte
	copy(key[:], shared)
	return key
}

func padHex(n *big.Int, width int) string {
	s := n.Text(16)
	if len(s) >= width {
		return s[len(s)-width:]
	}
	out := make([]byte, width)
	for i := range out {
		out[i] = '0'
	}
	copy(out[width-len(s):], s)
	return string(out)
}

func padBytes(n *big.Int, width int) []byte {
	raw := n.Bytes()
	if len(raw) >= width {
		return raw[len(raw)-width:]
	}
	out := make([]byte, width)
	copy(out[width-len(raw):], raw)
	return out
}
