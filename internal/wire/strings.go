package wire

import "github.com/lobbywire/lobbywire/internal/convert"

// WriteString converts s to encoding e and writes the raw bytes with no
// length prefix, optionally appending a NUL terminator.
func (b *Buffer) WriteString(e convert.Encoding, s string, nullTerminate bool) error {
	return b.WriteArray(convert.ToEncoding(e, s, nullTerminate))
}

// WriteString16 converts s to encoding e, writes its byte length as a
// host-endian u16, then the converted bytes.
func (b *Buffer) WriteString16(e convert.Encoding, s string, nullTerminate bool) error {
	return b.writeLengthPrefixedString(e, s, nullTerminate, b.WriteU16, 16)
}

// WriteString16Big is WriteString16 with a big-endian length prefix.
func (b *Buffer) WriteString16Big(e convert.Encoding, s string, nullTerminate bool) error {
	return b.writeLengthPrefixedString(e, s, nullTerminate, b.WriteU16Big, 16)
}

// WriteString16Little is WriteString16 with a little-endian length prefix.
func (b *Buffer) WriteString16Little(e convert.Encoding, s string, nullTerminate bool) error {
	return b.writeLengthPrefixedString(e, s, nullTerminate, b.WriteU16Little, 16)
}

// WriteString32 converts s to encoding e, writes its byte length as a
// host-endian u32, then the converted bytes.
func (b *Buffer) WriteString32(e convert.Encoding, s string, nullTerminate bool) error {
	return b.writeLengthPrefixedString32(e, s, nullTerminate, b.WriteU32)
}

// WriteString32Big is WriteString32 with a big-endian length prefix — the
// encoding the handshake's hex_string32_be fields use.
func (b *Buffer) WriteString32Big(e convert.Encoding, s string, nullTerminate bool) error {
	return b.writeLengthPrefixedString32(e, s, nullTerminate, b.WriteU32Big)
}

// WriteString32Little is WriteString32 with a little-endian length prefix.
func (b *Buffer) WriteString32Little(e convert.Encoding, s string, nullTerminate bool) error {
	return b.writeLengthPrefixedString32(e, s, nullTerminate, b.WriteU32Little)
}

func (b *Buffer) writeLengthPrefixedString(e convert.Encoding, s string, nullTerminate bool, writeLen func(uint16) error, _ int) error {
	data := convert.ToEncoding(e, s, nullTerminate)
	if err := writeLen(uint16(len(data))); err != nil {
		return err
	}
	return b.WriteArray(data)
}

func (b *Buffer) writeLengthPrefixedString32(e convert.Encoding, s string, nullTerminate bool, writeLen func(uint32) error) error {
	data := convert.ToEncoding(e, s, nullTerminate)
	if err := writeLen(uint32(len(data))); err != nil {
		return err
	}
	return b.WriteArray(data)
}

// ReadString scans forward from the cursor to the end of size for a zero
// byte (or the end of the buffer) and returns the converted prefix.
func (b *Buffer) ReadString(e convert.Encoding) (string, error) {
	start := b.position
	end := start
	for end < b.size && b.data[end] != 0 {
		end++
	}
	readTo := end
	if end < b.size {
		readTo = end + 1 // consume the terminator
	}
	raw, err := b.ReadArray(readTo - start)
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString16 reads a host-endian u16 length prefix then that many raw
// bytes, converting from encoding e.
func (b *Buffer) ReadString16(e convert.Encoding) (string, error) {
	n, err := b.ReadU16()
	if err != nil {
		return "", err
	}
	raw, err := b.ReadArray(uint32(n))
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString16Big is ReadString16 with a big-endian length prefix.
func (b *Buffer) ReadString16Big(e convert.Encoding) (string, error) {
	n, err := b.ReadU16Big()
	if err != nil {
		return "", err
	}
	raw, err := b.ReadArray(uint32(n))
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString16Little is ReadString16 with a little-endian length prefix.
func (b *Buffer) ReadString16Little(e convert.Encoding) (string, error) {
	return b.ReadString16(e)
}

// ReadString32 reads a host-endian u32 length prefix then that many raw
// bytes, converting from encoding e.
func (b *Buffer) ReadString32(e convert.Encoding) (string, error) {
	n, err := b.ReadU32()
	if err != nil {
		return "", err
	}
	raw, err := b.ReadArray(n)
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString32Big is ReadString32 with a big-endian length prefix — the
// encoding the handshake's hex_string32_be fields use.
func (b *Buffer) ReadString32Big(e convert.Encoding) (string, error) {
	n, err := b.ReadU32Big()
	if err != nil {
		return "", err
	}
	raw, err := b.ReadArray(n)
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString32Little is ReadString32 with a little-endian length prefix.
func (b *Buffer) ReadString32Little(e convert.Encoding) (string, error) {
	return b.ReadString32(e)
}
