package netcore

import (
	"encoding/binary"
	"io"

	"github.com/lobbywire/lobbywire/internal/crypto"
	"github.com/lobbywire/lobbywire/internal/wire"
)

// frameHeaderSize is the two big-endian u32 fields (padded size, real size)
// that precede every frame's encrypted payload, matching
// LobbyConnection::ParsePacket's `2 * sizeof(uint32_t)` probe read.
const frameHeaderSize = 8

// commandHeaderSize is the per-command header inside a decrypted frame: a
// leading 2-byte field the frame reader skips without interpreting (the
// original's own comment calls it "the big endian size (we think)"), then
// a little-endian command size and a little-endian command code.
const commandHeaderSize = 6

// readFrame blocks for one full frame — an 8-byte header followed by
// paddedSize bytes of ciphertext — decrypts it, and splits its decrypted
// body into zero or more Messages. A brand-new Buffer backs every frame
// (see DESIGN.md's per-frame allocation note), so no Message can ever
// observe the bytes of a later frame.
func (c *Connection) readFrame() ([]*Message, error) {
	if c.Status() != StatusEncrypted {
		return nil, ErrNotEncrypted
	}

	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return nil, err
	}
	paddedSize := binary.BigEndian.Uint32(header[0:4])
	if paddedSize > wire.MaxPacketSize-frameHeaderSize {
		return nil, protoErrCritical("frame padded size exceeds the maximum packet size")
	}

	payload := make([]byte, paddedSize)
	if _, err := io.ReadFull(c.conn, payload); err != nil {
		return nil, err
	}

	frame := wire.NewBuffer()
	if err := frame.WriteArray(header); err != nil {
		return nil, err
	}
	if err := frame.WriteArray(payload); err != nil {
		return nil, err
	}
	if err := crypto.DecryptPacket(c.encryptionKey, frame); err != nil {
		return nil, protoErrCritical("failed to decrypt frame: " + err.Error())
	}

	realSize := frame.Size() - frameHeaderSize
	if realSize > paddedSize {
		return nil, protoErr("corrupt packet (real size exceeds padded size)")
	}

	if err := frame.Seek(frameHeaderSize); err != nil {
		return nil, protoErrWrap("failed to seek past frame header", err)
	}
	view := frame.Freeze()

	// DecryptPacket has already trimmed the paddedSize-realSize bytes of
	// padding off the frame, so the commands must account for exactly the
	// realSize bytes that remain.
	var msgs []*Message
	for view.Left() > 0 {
		if view.Left() < commandHeaderSize {
			return nil, protoErr("corrupt packet (not enough data for command header)")
		}
		if err := view.Skip(2); err != nil {
			return nil, protoErrWrap("failed to skip command's leading field", err)
		}
		commandStart := view.Tell()
		commandSize, err := view.ReadU16Little()
		if err != nil {
			return nil, protoErrWrap("failed to read command size", err)
		}
		commandCode, err := view.ReadU16Little()
		if err != nil {
			return nil, protoErrWrap("failed to read command code", err)
		}
		if commandSize < 4 {
			return nil, protoErr("corrupt packet (not enough data for command)")
		}
		bodyLen := uint32(commandSize) - 4
		if view.Left() < bodyLen {
			return nil, protoErr("corrupt packet (not enough data for command data)")
		}

		body, err := view.Slice(commandStart+4, bodyLen)
		if err != nil {
			return nil, protoErrWrap("failed to slice command body", err)
		}
		msgs = append(msgs, &Message{Connection: c, Code: commandCode, Body: body})

		if err := view.Seek(commandStart + uint32(commandSize)); err != nil {
			return nil, protoErrWrap("failed to seek past command", err)
		}
	}
	return msgs, nil
}

// Command is one outgoing command: a code and its body, as accepted by
// SendCommands.
type Command struct {
	Code uint16
	Body []byte
}

// Send frames one outgoing command (code plus body) and writes it to the
// socket, encrypted. Safe to call concurrently with Run's read loop and
// with other Send calls; writes are serialized by the per-connection mutex.
func (c *Connection) Send(code uint16, body []byte) error {
	return c.SendCommands(Command{Code: code, Body: body})
}

// SendCommands frames one or more outgoing commands into a single frame —
// the multi-command case readFrame's decode loop already handles on the
// read side — and writes it to the socket, encrypted. Safe to call
// concurrently with Run's read loop and with other Send/SendCommands calls;
// writes are serialized by the per-connection mutex.
func (c *Connection) SendCommands(commands ...Command) error {
	if c.Status() != StatusEncrypted {
		return ErrNotEncrypted
	}
	if len(commands) == 0 {
		return nil
	}

	frame := wire.NewBuffer()
	if err := frame.WriteBlank(frameHeaderSize); err != nil {
		return err
	}

	for _, cmd := range commands {
		commandSize := uint16(4 + len(cmd.Body))
		if err := frame.WriteU16Big(commandSize); err != nil {
			return err
		}
		if err := frame.WriteU16Little(commandSize); err != nil {
			return err
		}
		if err := frame.WriteU16Little(cmd.Code); err != nil {
			return err
		}
		if err := frame.WriteArray(cmd.Body); err != nil {
			return err
		}
	}

	if err := crypto.EncryptPacket(c.encryptionKey, frame); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeRaw(frame.Data())
}

// Broadcast sends the same commands to every connection in conns, matching
// Connection::broadcast's shared-view cloning: the commands are encoded
// once per recipient (each connection holds its own Diffie-Hellman session
// key, so no ciphertext can be shared across sockets) but the caller's body
// slices are never mutated or copied beyond what SendCommands already does,
// so preparing the command list itself is the only work done once. Errors
// from individual recipients are collected rather than aborting the whole
// broadcast, since one dead peer must never block delivery to the rest.
func Broadcast(conns []*Connection, commands ...Command) []error {
	var errs []error
	for _, conn := range conns {
		if conn == nil {
			continue
		}
		if err := conn.SendCommands(commands...); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
