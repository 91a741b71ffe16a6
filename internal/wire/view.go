package wire

import (
	"encoding/binary"
	"math"

	"github.com/lobbywire/lobbywire/internal/convert"
)

// View is a cursor-bearing, cheaply clonable and sliceable window into a
// reference-counted packet backing buffer. Go's garbage collector plays the
// role the original's hand-rolled reference-counted byte array played: as
// long as any View shares a backing slice, the underlying array stays
// alive, and slicing never copies bytes.
type View struct {
	data     []byte
	position uint32
	size     uint32
}

// Clone returns a new View over the same backing bytes with its own
// independent cursor.
func (v *View) Clone() *View {
	return &View{data: v.data, position: v.position, size: v.size}
}

// Slice constructs a sub-view covering [start, start+length) of v, with its
// own independent cursor starting at zero.
func (v *View) Slice(start, length uint32) (*View, error) {
	if start+length > v.size {
		return nil, newPacketError("attempted to slice a view range that does not exist", v.position, v.size, hexDump(v.Bytes()), 1)
	}
	return &View{data: v.data[start : start+length], position: 0, size: length}, nil
}

// Bytes returns the view's meaningful bytes.
func (v *View) Bytes() []byte { return v.data[:v.size] }

// Tell, Size, Left, Capacity mirror Buffer's position accessors.
func (v *View) Tell() uint32     { return v.position }
func (v *View) Size() uint32     { return v.size }
func (v *View) Left() uint32     { return v.size - v.position }
func (v *View) Capacity() uint32 { return uint32(len(v.data)) }

// Seek, Skip, Rewind, RewindN, End mirror Buffer's cursor operations,
// bounded by size rather than capacity since a View never grows.
func (v *View) Seek(pos uint32) error {
	if pos > v.size {
		return newPacketError("seek past the view's size", v.position, v.size, hexDump(v.Bytes()), 1)
	}
	v.position = pos
	return nil
}

func (v *View) Skip(n uint32) error {
	if n == 0 {
		return nil
	}
	if v.position+n > v.size {
		return newPacketError("skip exceeds the view's size", v.position, v.size, hexDump(v.Bytes()), 1)
	}
	v.position += n
	return nil
}

func (v *View) Rewind() { v.position = 0 }

func (v *View) RewindN(n uint32) error {
	if n == 0 {
		return nil
	}
	if n > v.position {
		return newPacketError("rewind past the start of the view", v.position, v.size, hexDump(v.Bytes()), 1)
	}
	v.position -= n
	return nil
}

func (v *View) End() { v.position = v.size }

func (v *View) readFixed(width uint32, advance bool) ([]byte, error) {
	if v.position+width > v.size {
		return nil, newPacketError("read exceeds the view's size", v.position, v.size, hexDump(v.Bytes()), 2)
	}
	out := v.data[v.position : v.position+width]
	if advance {
		v.position += width
	}
	return out, nil
}

// PeekU8 reads a byte without advancing the cursor.
func (v *View) PeekU8() (uint8, error) {
	raw, err := v.readFixed(1, false)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// PeekU16 reads a host-endian u16 without advancing the cursor.
func (v *View) PeekU16() (uint16, error) {
	raw, err := v.readFixed(2, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// PeekU16Big reads a big-endian u16 without advancing the cursor.
func (v *View) PeekU16Big() (uint16, error) {
	raw, err := v.readFixed(2, false)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

// PeekU16Little reads a little-endian u16 without advancing the cursor.
func (v *View) PeekU16Little() (uint16, error) { return v.PeekU16() }

// PeekU32 reads a host-endian u32 without advancing the cursor.
func (v *View) PeekU32() (uint32, error) {
	raw, err := v.readFixed(4, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// PeekU32Big reads a big-endian u32 without advancing the cursor.
func (v *View) PeekU32Big() (uint32, error) {
	raw, err := v.readFixed(4, false)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

// PeekU32Little reads a little-endian u32 without advancing the cursor.
func (v *View) PeekU32Little() (uint32, error) { return v.PeekU32() }

// ReadU8 reads and advances past a byte.
func (v *View) ReadU8() (uint8, error) {
	raw, err := v.readFixed(1, true)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// ReadS8 reads and advances past a signed byte.
func (v *View) ReadS8() (int8, error) {
	val, err := v.ReadU8()
	return int8(val), err
}

// ReadU16 reads and advances past a host-endian u16.
func (v *View) ReadU16() (uint16, error) {
	raw, err := v.readFixed(2, true)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// ReadU16Big reads and advances past a big-endian u16.
func (v *View) ReadU16Big() (uint16, error) {
	raw, err := v.readFixed(2, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

// ReadU16Little reads and advances past a little-endian u16.
func (v *View) ReadU16Little() (uint16, error) { return v.ReadU16() }

// ReadS16 reads and advances past a host-endian signed 16-bit value.
func (v *View) ReadS16() (int16, error) {
	val, err := v.ReadU16()
	return int16(val), err
}

// ReadS16Big reads and advances past a big-endian signed 16-bit value.
func (v *View) ReadS16Big() (int16, error) {
	val, err := v.ReadU16Big()
	return int16(val), err
}

// ReadS16Little reads and advances past a little-endian signed 16-bit value.
func (v *View) ReadS16Little() (int16, error) {
	val, err := v.ReadU16Little()
	return int16(val), err
}

// ReadU32 reads and advances past a host-endian u32.
func (v *View) ReadU32() (uint32, error) {
	raw, err := v.readFixed(4, true)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// ReadU32Big reads and advances past a big-endian u32.
func (v *View) ReadU32Big() (uint32, error) {
	raw, err := v.readFixed(4, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

// ReadU32Little reads and advances past a little-endian u32.
func (v *View) ReadU32Little() (uint32, error) { return v.ReadU32() }

// ReadS32 reads and advances past a host-endian signed 32-bit value.
func (v *View) ReadS32() (int32, error) {
	val, err := v.ReadU32()
	return int32(val), err
}

// ReadS32Big reads and advances past a big-endian signed 32-bit value.
func (v *View) ReadS32Big() (int32, error) {
	val, err := v.ReadU32Big()
	return int32(val), err
}

// ReadS32Little reads and advances past a little-endian signed 32-bit value.
func (v *View) ReadS32Little() (int32, error) {
	val, err := v.ReadU32Little()
	return int32(val), err
}

// ReadU64 reads and advances past a host-endian u64.
func (v *View) ReadU64() (uint64, error) {
	raw, err := v.readFixed(8, true)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// ReadU64Big reads and advances past a big-endian u64.
func (v *View) ReadU64Big() (uint64, error) {
	raw, err := v.readFixed(8, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

// ReadU64Little reads and advances past a little-endian u64.
func (v *View) ReadU64Little() (uint64, error) { return v.ReadU64() }

// ReadS64 reads and advances past a host-endian signed 64-bit value.
func (v *View) ReadS64() (int64, error) {
	val, err := v.ReadU64()
	return int64(val), err
}

// ReadS64Big reads and advances past a big-endian signed 64-bit value.
func (v *View) ReadS64Big() (int64, error) {
	val, err := v.ReadU64Big()
	return int64(val), err
}

// ReadS64Little reads and advances past a little-endian signed 64-bit value.
func (v *View) ReadS64Little() (int64, error) {
	val, err := v.ReadU64Little()
	return int64(val), err
}

// ReadFloat reads and advances past a host-endian 32-bit IEEE-754 float.
func (v *View) ReadFloat() (float32, error) {
	raw, err := v.readFixed(4, true)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(raw)), nil
}

// ReadArray reads and advances past n raw bytes, returning a copy.
func (v *View) ReadArray(n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	raw, err := v.readFixed(n, true)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// ReadString scans forward from the cursor to the end of the view for a zero
// byte (or the view's end) and returns the converted prefix.
func (v *View) ReadString(e convert.Encoding) (string, error) {
	start := v.position
	end := start
	for end < v.size && v.data[end] != 0 {
		end++
	}
	readTo := end
	if end < v.size {
		readTo = end + 1 // consume the terminator
	}
	raw, err := v.ReadArray(readTo - start)
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString16 reads a host-endian u16 length prefix then that many raw
// bytes, converting from encoding e.
func (v *View) ReadString16(e convert.Encoding) (string, error) {
	n, err := v.ReadU16()
	if err != nil {
		return "", err
	}
	raw, err := v.ReadArray(uint32(n))
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString16Big is ReadString16 with a big-endian length prefix.
func (v *View) ReadString16Big(e convert.Encoding) (string, error) {
	n, err := v.ReadU16Big()
	if err != nil {
		return "", err
	}
	raw, err := v.ReadArray(uint32(n))
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString16Little is ReadString16 with a little-endian length prefix.
func (v *View) ReadString16Little(e convert.Encoding) (string, error) {
	return v.ReadString16(e)
}

// ReadString32 reads a host-endian u32 length prefix then that many raw
// bytes, converting from encoding e.
func (v *View) ReadString32(e convert.Encoding) (string, error) {
	n, err := v.ReadU32()
	if err != nil {
		return "", err
	}
	raw, err := v.ReadArray(n)
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString32Big reads a big-endian u32 length prefix then that many raw
// bytes, converting from encoding e — the form the handshake uses.
func (v *View) ReadString32Big(e convert.Encoding) (string, error) {
	n, err := v.ReadU32Big()
	if err != nil {
		return "", err
	}
	raw, err := v.ReadArray(n)
	if err != nil {
		return "", err
	}
	return convert.FromEncoding(e, raw), nil
}

// ReadString32Little is ReadString32 with a little-endian length prefix.
func (v *View) ReadString32Little(e convert.Encoding) (string, error) {
	return v.ReadString32(e)
}

// HexDump renders the view's meaningful bytes as a canonical hex+ASCII
// dump.
func (v *View) HexDump() string { return hexDump(v.Bytes()) }

// Mutable copies the view's bytes into a brand new, independently-owned
// Buffer. This is the only way to regain write access to view-derived data,
// matching the "write buffer may be reconstructed by a move only" rule —
// here expressed as an explicit, cheap copy rather than an actual move,
// since a shared View may still have other readers.
func (v *View) Mutable() (*Buffer, error) {
	return NewBufferFrom(v.Bytes())
}
