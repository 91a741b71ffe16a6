package netcore

import (
	"io"

	"github.com/lobbywire/lobbywire/internal/convert"
	"github.com/lobbywire/lobbywire/internal/crypto"
	"github.com/lobbywire/lobbywire/internal/wire"
)

// dhBaseString is the Diffie-Hellman generator, always the literal "2" —
// DH_BASE_STRING in the original.
const dhBaseString = "2"

// handshakeClientStartSize is the client's first, unencrypted message: two
// big-endian u32s (a version marker and its own byte count).
const handshakeClientStartSize = 8

// handshakeServerStartSize is the server's reply: a blank u32, then the
// base, prime, and server-public strings each as a big-endian-length-
// prefixed UTF-8 string. strlen("2") + 2*DH_KEY_HEX_SIZE + 4*sizeof(uint32).
const handshakeServerStartSize = len(dhBaseString) + 2*crypto.DHKeyHexSize + 4*4

// handshakeClientFinishSize is the client's second message: its own public
// value as a big-endian-length-prefixed string. DH_KEY_HEX_SIZE + sizeof(uint32).
const handshakeClientFinishSize = crypto.DHKeyHexSize + 4

// handshakeClient performs the client side of the exchange: ConnectionSuccess
// sends the version/size probe, ParseClientEncryptionStart parses the
// server's base/prime/public reply, and the client's own public reply
// completes the chain, matching LobbyConnection.cpp's ROLE_CLIENT path.
func (c *Connection) handshakeClient() error {
	start := wire.NewBuffer()
	start.WriteU32Big(1)
	start.WriteU32Big(handshakeClientStartSize)
	if err := c.writeRaw(start.Data()); err != nil {
		return err
	}

	reply, err := c.readExact(handshakeServerStartSize)
	if err != nil {
		return err
	}

	zero, err := reply.ReadU32Big()
	if err != nil || zero != 0 {
		return protoErr("failed to parse encryption data")
	}
	base, err := reply.ReadString32Big(convert.EncodingUTF8)
	if err != nil || base != dhBaseString {
		return protoErr("failed to parse encryption base")
	}
	primeHex, err := reply.ReadString32Big(convert.EncodingUTF8)
	if err != nil || len(primeHex) != crypto.DHKeyHexSize {
		return protoErr("failed to parse encryption prime")
	}
	serverPublicHex, err := reply.ReadString32Big(convert.EncodingUTF8)
	if err != nil || len(serverPublicHex) != crypto.DHKeyHexSize {
		return protoErr("failed to parse encryption server public")
	}
	if reply.Left() != 0 {
		return protoErr("read too much data for packet")
	}

	params, err := crypto.LoadParamsHex(primeHex)
	if err != nil {
		return protoErr("failed to load diffie-hellman prime")
	}
	c.params = params

	kp, err := params.GenerateKeyPair()
	if err != nil {
		return err
	}
	c.keyPair = kp

	serverPublic, err := crypto.PublicFromHex(serverPublicHex)
	if err != nil {
		return protoErr("failed to parse server public")
	}
	shared := kp.SharedSecret(serverPublic)

	c.setStatus(StatusWaitingEncryption)

	finish := wire.NewBuffer()
	if err := finish.WriteString32Big(convert.EncodingUTF8, kp.PublicHex(), false); err != nil {
		return err
	}
	if err := c.writeRaw(finish.Data()); err != nil {
		return err
	}

	key := crypto.BlowfishKeyFromShared(shared)
	c.encryptionKey = key[:]
	c.setStatus(StatusEncrypted)
	return nil
}

// handshakeServer performs the server side, matching
// ParseServerEncryptionStart/ParseServerEncryptionFinish. Callers
// (Server.handshakeAndHandOff) are responsible for supplying the shared Params every accepted connection
// on one server negotiates against.
func (c *Connection) handshakeServer() error {
	start, err := c.readExact(handshakeClientStartSize)
	if err != nil {
		return err
	}
	first, err := start.ReadU32Big()
	if err != nil {
		return err
	}
	second, err := start.ReadU32Big()
	if err != nil {
		return err
	}
	if start.Left() != 0 || first != 1 || second != handshakeClientStartSize {
		return protoErr("read too much data for packet")
	}

	c.setStatus(StatusWaitingEncryption)

	kp, err := c.params.GenerateKeyPair()
	if err != nil {
		return err
	}
	c.keyPair = kp

	reply := wire.NewBuffer()
	if err := reply.WriteBlank(4); err != nil {
		return err
	}
	if err := reply.WriteString32Big(convert.EncodingUTF8, dhBaseString, false); err != nil {
		return err
	}
	if err := reply.WriteString32Big(convert.EncodingUTF8, c.params.PrimeHex(), false); err != nil {
		return err
	}
	if err := reply.WriteString32Big(convert.EncodingUTF8, kp.PublicHex(), false); err != nil {
		return err
	}
	if err := c.writeRaw(reply.Data()); err != nil {
		return err
	}

	finish, err := c.readExact(handshakeClientFinishSize)
	if err != nil {
		return err
	}
	clientPublicHex, err := finish.ReadString32Big(convert.EncodingUTF8)
	if err != nil || len(clientPublicHex) != crypto.DHKeyHexSize {
		return protoErr("failed to parse encryption client public")
	}
	if finish.Left() != 0 {
		return protoErr("read too much data for packet")
	}

	clientPublic, err := crypto.PublicFromHex(clientPublicHex)
	if err != nil {
		return protoErr("failed to parse client public")
	}
	shared := kp.SharedSecret(clientPublic)

	key := crypto.BlowfishKeyFromShared(shared)
	c.encryptionKey = key[:]
	c.setStatus(StatusEncrypted)
	return nil
}

// readExact blocks until exactly n raw (unencrypted) bytes have arrived and
// returns them as a rewound Buffer ready for sequential reads.
func (c *Connection) readExact(n int) (*wire.Buffer, error) {
	raw := make([]byte, n)
	if _, err := io.ReadFull(c.conn, raw); err != nil {
		return nil, err
	}
	buf, err := wire.NewBufferFrom(raw)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Connection) writeRaw(data []byte) error {
	_, err := c.conn.Write(data)
	return err
}
