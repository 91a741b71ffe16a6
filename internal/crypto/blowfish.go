package crypto

import (
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/blowfish"

	"github.com/lobbywire/lobbywire/internal/wire"
)

// BlockSize is the Blowfish cipher's fixed block width.
const BlockSize = 8

// ErrShortPacket is returned when a buffer is too small to carry the
// 8-byte padded/real size header EncryptPacket/DecryptPacket expect.
var ErrShortPacket = errors.New("crypto: packet too small for an encrypted header")

// Encrypt zero-pads data to a multiple of BlockSize and encrypts it one
// block at a time in ECB mode — the mode the wire protocol's live traffic
// uses, matching the original's Decrypt::Encrypt.
func Encrypt(key []byte, data []byte) ([]byte, error) {
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := padToBlock(data)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += BlockSize {
		block.Encrypt(out[i:i+BlockSize], padded[i:i+BlockSize])
	}
	return out, nil
}

// Decrypt decrypts data one block at a time in ECB mode. If realSize is
// greater than zero the result is truncated to that many bytes, matching
// the original's optional resize-on-decrypt behavior.
func Decrypt(key []byte, data []byte, realSize int) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, errors.New("crypto: ciphertext is not a multiple of the block size")
	}
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += BlockSize {
		block.Decrypt(out[i:i+BlockSize], data[i:i+BlockSize])
	}
	if realSize > 0 && realSize < len(out) {
		out = out[:realSize]
	}
	return out, nil
}

// EncryptCBC encrypts data (which must already be a multiple of BlockSize)
// under CBC chaining, advancing iv in place so a subsequent call continues
// the same chain. The at-rest file format (EncryptFile) makes a single call
// over the padded body; its 8-byte header is written in the clear.
func EncryptCBC(key []byte, iv *[8]byte, data []byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, errors.New("crypto: plaintext is not a multiple of the block size")
	}
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	mode := cipher.NewCBCEncrypter(block, iv[:])
	out := make([]byte, len(data))
	mode.CryptBlocks(out, data)
	if len(out) > 0 {
		copy(iv[:], out[len(out)-BlockSize:])
	}
	return out, nil
}

// DecryptCBC reverses EncryptCBC, likewise advancing iv in place.
func DecryptCBC(key []byte, iv *[8]byte, data []byte) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, errors.New("crypto: ciphertext is not a multiple of the block size")
	}
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, err
	}
	mode := cipher.NewCBCDecrypter(block, iv[:])
	out := make([]byte, len(data))
	mode.CryptBlocks(out, data)
	if len(data) > 0 {
		copy(iv[:], data[len(data)-BlockSize:])
	}
	return out, nil
}

func padToBlock(data []byte) []byte {
	pad := (BlockSize - len(data)%BlockSize) % BlockSize
	if pad == 0 {
		return data
	}
	out := make([]byte, len(data)+pad)
	copy(out, data)
	return out
}

// EncryptPacket encrypts a packet's payload in place for wire transmission.
// The first 8 bytes are a header, both fields big-endian to match the
// frame reader that peels them off before decryption: a padded-size u32 at
// offset 0 and a real-size u32 at offset 4. EncryptPacket writes the real
// size (the payload length before padding), zero-pads the payload to a
// block boundary, ECB-encrypts everything from offset 8 onward, and writes
// the resulting padded size at offset 0. Matches Decrypt::EncryptPacket.
func EncryptPacket(key []byte, p *wire.Buffer) error {
	if p.Size() < 8 {
		return ErrShortPacket
	}
	realSize := p.Size() - 8

	if err := p.Seek(4); err != nil {
		return err
	}
	if err := p.WriteU32Big(realSize); err != nil {
		return err
	}

	pad := (BlockSize - int(realSize)%BlockSize) % BlockSize
	p.End()
	if pad > 0 {
		if err := p.WriteBlank(uint32(pad)); err != nil {
			return err
		}
	}
	paddedSize := realSize + uint32(pad)

	payload := p.Data()[8 : 8+paddedSize]
	block, err := blowfish.NewCipher(key)
	if err != nil {
		return err
	}
	for i := 0; i < len(payload); i += BlockSize {
		block.Encrypt(payload[i:i+BlockSize], payload[i:i+BlockSize])
	}

	if err := p.Seek(0); err != nil {
		return err
	}
	return p.WriteU32Big(paddedSize)
}

// DecryptPacket reverses EncryptPacket in place, trimming the buffer back
// down to the unpadded real size. Matches Decrypt::DecryptPacket, including
// its guard against a buffer too small to even hold the header and one
// block.
func DecryptPacket(key []byte, p *wire.Buffer) error {
	if p.Size() < 8+BlockSize {
		return ErrShortPacket
	}

	if err := p.Seek(0); err != nil {
		return err
	}
	paddedSize, err := p.ReadU32Big()
	if err != nil {
		return err
	}
	if 8+paddedSize > p.Size() {
		return ErrShortPacket
	}

	block, err := blowfish.NewCipher(key)
	if err != nil {
		return err
	}
	payload := p.Data()[8 : 8+paddedSize]
	for i := uint32(0); i+BlockSize <= paddedSize; i += BlockSize {
		block.Decrypt(payload[i:i+BlockSize], payload[i:i+BlockSize])
	}

	if err := p.Seek(4); err != nil {
		return err
	}
	realSize, err := p.ReadU32Big()
	if err != nil {
		return err
	}
	if err := p.Seek(8 + realSize); err != nil {
		return err
	}
	p.EraseRight()
	return nil
}
