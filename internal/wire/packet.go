// Package wire implements the bounded binary packet codec the connection
// layer frames its traffic with: a cursor-based byte arena with typed
// integer and length-prefixed string read/write operations, compress/
// decompress helpers, and a split between an exclusively-owned mutable
// Buffer and a cheaply clonable, sub-sliceable read-only View.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// MaxPacketSize is the hard ceiling on any packet's size, matching the
// wire protocol's MAX_PACKET_SIZE constant.
const MaxPacketSize = 16384

var errDecompressTooLarge = errors.New("wire: decompressed data exceeds remaining capacity")

// Buffer is a mutable, exclusively-owned packet under construction. It is
// always backed by a full MaxPacketSize allocation; writes grow size up to
// the point the cursor has written, and EraseRight, Clear, Compress and
// Decompress can shrink it.
type Buffer struct {
	data     []byte
	position uint32
	size     uint32
}

// NewBuffer allocates an empty Buffer with cursor and size both at zero.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, MaxPacketSize)}
}

// NewBufferFrom allocates a Buffer and writes data into it starting at
// position 0, then rewinds the cursor to the start.
func NewBufferFrom(data []byte) (*Buffer, error) {
	b := NewBuffer()
	if len(data) == 0 {
		return b, nil
	}
	if err := b.WriteArray(data); err != nil {
		return nil, err
	}
	b.Rewind()
	return b, nil
}

// Tell returns the current cursor position.
func (b *Buffer) Tell() uint32 { return b.position }

// Size returns the number of meaningful bytes written so far.
func (b *Buffer) Size() uint32 { return b.size }

// Left returns the number of bytes between the cursor and size.
func (b *Buffer) Left() uint32 { return b.size - b.position }

// Capacity returns the fixed backing capacity (MaxPacketSize).
func (b *Buffer) Capacity() uint32 { return uint32(len(b.data)) }

// Data returns the backing bytes up to size. The caller must not retain
// this slice past the buffer's next mutation.
func (b *Buffer) Data() []byte { return b.data[:b.size] }

// Clear resets the cursor and size to zero; the backing allocation is
// reused.
func (b *Buffer) Clear() {
	b.position = 0
	b.size = 0
}

// EraseRight truncates size to the current cursor position, discarding
// everything after it.
func (b *Buffer) EraseRight() {
	b.size = b.position
}

// Seek moves the cursor to an absolute position, failing if pos exceeds
// capacity.
func (b *Buffer) Seek(pos uint32) error {
	if pos > b.Capacity() {
		return newPacketError("seek past capacity", b.position, b.size, hexDump(b.Data()), 1)
	}
	b.position = pos
	return nil
}

// Skip advances the cursor by n bytes, failing if doing so would exceed
// capacity.
func (b *Buffer) Skip(n uint32) error {
	if n == 0 {
		return nil
	}
	if b.position+n > b.Capacity() {
		return newPacketError("skip exceeds capacity", b.position, b.size, hexDump(b.Data()), 1)
	}
	b.position += n
	return nil
}

// Rewind moves the cursor back to zero.
func (b *Buffer) Rewind() { b.position = 0 }

// RewindN moves the cursor back n bytes, failing if n exceeds the current
// position.
func (b *Buffer) RewindN(n uint32) error {
	if n == 0 {
		return nil
	}
	if n > b.position {
		return newPacketError("rewind past the start of the buffer", b.position, b.size, hexDump(b.Data()), 1)
	}
	b.position -= n
	return nil
}

// End moves the cursor to the current size.
func (b *Buffer) End() { b.position = b.size }

func (b *Buffer) growPacket(n uint32) error {
	if n == 0 {
		return newPacketError("attempted to grow the buffer by 0 bytes", b.position, b.size, hexDump(b.Data()), 2)
	}
	newSize := b.position + n
	if newSize < b.size {
		return nil
	}
	if newSize > b.Capacity() {
		return newPacketError("write would exceed MaxPacketSize", b.position, b.size, hexDump(b.Data()), 2)
	}
	b.size = newSize
	return nil
}

// WriteBlank writes n zero bytes at the cursor.
func (b *Buffer) WriteBlank(n uint32) error {
	if n == 0 {
		return nil
	}
	if err := b.growPacket(n); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		b.data[b.position+i] = 0
	}
	return b.Skip(n)
}

// WriteArray writes data verbatim at the cursor.
func (b *Buffer) WriteArray(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n := uint32(len(data))
	if err := b.growPacket(n); err != nil {
		return err
	}
	copy(b.data[b.position:b.position+n], data)
	return b.Skip(n)
}

func (b *Buffer) writeFixed(width uint32, bytesOf func([]byte)) error {
	if err := b.growPacket(width); err != nil {
		return err
	}
	bytesOf(b.data[b.position : b.position+width])
	return b.Skip(width)
}

// WriteU8 writes a single unsigned byte.
func (b *Buffer) WriteU8(v uint8) error {
	return b.writeFixed(1, func(dst []byte) { dst[0] = v })
}

// WriteS8 writes a single signed byte.
func (b *Buffer) WriteS8(v int8) error { return b.WriteU8(uint8(v)) }

// WriteU16 writes v in host (little-endian, matching the target platform)
// byte order.
func (b *Buffer) WriteU16(v uint16) error {
	return b.writeFixed(2, func(dst []byte) { binary.LittleEndian.PutUint16(dst, v) })
}

// WriteU16Big writes v in big-endian byte order.
func (b *Buffer) WriteU16Big(v uint16) error {
	return b.writeFixed(2, func(dst []byte) { binary.BigEndian.PutUint16(dst, v) })
}

// WriteU16Little writes v in little-endian byte order.
func (b *Buffer) WriteU16Little(v uint16) error { return b.WriteU16(v) }

// WriteS16 writes a signed 16-bit value in host byte order.
func (b *Buffer) WriteS16(v int16) error { return b.WriteU16(uint16(v)) }

// WriteS16Big writes a signed 16-bit value in big-endian byte order.
func (b *Buffer) WriteS16Big(v int16) error { return b.WriteU16Big(uint16(v)) }

// WriteS16Little writes a signed 16-bit value in little-endian byte order.
func (b *Buffer) WriteS16Little(v int16) error { return b.WriteU16Little(uint16(v)) }

// WriteU32 writes v in host byte order.
func (b *Buffer) WriteU32(v uint32) error {
	return b.writeFixed(4, func(dst []byte) { binary.LittleEndian.PutUint32(dst, v) })
}

// WriteU32Big writes v in big-endian byte order.
func (b *Buffer) WriteU32Big(v uint32) error {
	return b.writeFixed(4, func(dst []byte) { binary.BigEndian.PutUint32(dst, v) })
}

// WriteU32Little writes v in little-endian byte order.
func (b *Buffer) WriteU32Little(v uint32) error { return b.WriteU32(v) }

// WriteS32 writes a signed 32-bit value in host byte order.
func (b *Buffer) WriteS32(v int32) error { return b.WriteU32(uint32(v)) }

// WriteS32Big writes a signed 32-bit value in big-endian byte order.
func (b *Buffer) WriteS32Big(v int32) error { return b.WriteU32Big(uint32(v)) }

// WriteS32Little writes a signed 32-bit value in little-endian byte order.
func (b *Buffer) WriteS32Little(v int32) error { return b.WriteU32Little(uint32(v)) }

// WriteU64 writes v in host byte order.
func (b *Buffer) WriteU64(v uint64) error {
	return b.writeFixed(8, func(dst []byte) { binary.LittleEndian.PutUint64(dst, v) })
}

// WriteU64Big writes v in big-endian byte order.
func (b *Buffer) WriteU64Big(v uint64) error {
	return b.writeFixed(8, func(dst []byte) { binary.BigEndian.PutUint64(dst, v) })
}

// WriteU64Little writes v in little-endian byte order.
func (b *Buffer) WriteU64Little(v uint64) error { return b.WriteU64(v) }

// WriteS64 writes a signed 64-bit value in host byte order.
func (b *Buffer) WriteS64(v int64) error { return b.WriteU64(uint64(v)) }

// WriteS64Big writes a signed 64-bit value in big-endian byte order.
func (b *Buffer) WriteS64Big(v int64) error { return b.WriteU64Big(uint64(v)) }

// WriteS64Little writes a signed 64-bit value in little-endian byte order.
func (b *Buffer) WriteS64Little(v int64) error { return b.WriteU64Little(uint64(v)) }

// WriteFloat writes a 32-bit IEEE-754 float in host byte order.
func (b *Buffer) WriteFloat(v float32) error {
	return b.writeFixed(4, func(dst []byte) { binary.LittleEndian.PutUint32(dst, math.Float32bits(v)) })
}

func (b *Buffer) readFixed(width uint32, advance bool) ([]byte, error) {
	if b.position+width > b.size {
		return nil, newPacketError("read exceeds the buffer's size", b.position, b.size, hexDump(b.Data()), 2)
	}
	out := b.data[b.position : b.position+width]
	if advance {
		b.position += width
	}
	return out, nil
}

// PeekU8 reads a byte without advancing the cursor.
func (b *Buffer) PeekU8() (uint8, error) {
	raw, err := b.readFixed(1, false)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// PeekU16 reads a host-endian u16 without advancing the cursor.
func (b *Buffer) PeekU16() (uint16, error) {
	raw, err := b.readFixed(2, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// PeekU16Big reads a big-endian u16 without advancing the cursor.
func (b *Buffer) PeekU16Big() (uint16, error) {
	raw, err := b.readFixed(2, false)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

// PeekU16Little reads a little-endian u16 without advancing the cursor.
func (b *Buffer) PeekU16Little() (uint16, error) { return b.PeekU16() }

// PeekU32 reads a host-endian u32 without advancing the cursor.
func (b *Buffer) PeekU32() (uint32, error) {
	raw, err := b.readFixed(4, false)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// PeekU32Big reads a big-endian u32 without advancing the cursor.
func (b *Buffer) PeekU32Big() (uint32, error) {
	raw, err := b.readFixed(4, false)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

// PeekU32Little reads a little-endian u32 without advancing the cursor.
func (b *Buffer) PeekU32Little() (uint32, error) { return b.PeekU32() }

// ReadU8 reads and advances past a byte.
func (b *Buffer) ReadU8() (uint8, error) {
	raw, err := b.readFixed(1, true)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// ReadS8 reads and advances past a signed byte.
func (b *Buffer) ReadS8() (int8, error) {
	v, err := b.ReadU8()
	return int8(v), err
}

// ReadU16 reads and advances past a host-endian u16.
func (b *Buffer) ReadU16() (uint16, error) {
	raw, err := b.readFixed(2, true)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// ReadU16Big reads and advances past a big-endian u16.
func (b *Buffer) ReadU16Big() (uint16, error) {
	raw, err := b.readFixed(2, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(raw), nil
}

// ReadU16Little reads and advances past a little-endian u16.
func (b *Buffer) ReadU16Little() (uint16, error) { return b.ReadU16() }

// ReadS16 reads and advances past a host-endian signed 16-bit value.
func (b *Buffer) ReadS16() (int16, error) {
	v, err := b.ReadU16()
	return int16(v), err
}

// ReadS16Big reads and advances past a big-endian signed 16-bit value.
func (b *Buffer) ReadS16Big() (int16, error) {
	v, err := b.ReadU16Big()
	return int16(v), err
}

// ReadS16Little reads and advances past a little-endian signed 16-bit value.
func (b *Buffer) ReadS16Little() (int16, error) {
	v, err := b.ReadU16Little()
	return int16(v), err
}

// ReadU32 reads and advances past a host-endian u32.
func (b *Buffer) ReadU32() (uint32, error) {
	raw, err := b.readFixed(4, true)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// ReadU32Big reads and advances past a big-endian u32.
func (b *Buffer) ReadU32Big() (uint32, error) {
	raw, err := b.readFixed(4, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(raw), nil
}

// ReadU32Little reads and advances past a little-endian u32.
func (b *Buffer) ReadU32Little() (uint32, error) { return b.ReadU32() }

// ReadS32 reads and advances past a host-endian signed 32-bit value.
func (b *Buffer) ReadS32() (int32, error) {
	v, err := b.ReadU32()
	return int32(v), err
}

// ReadS32Big reads and advances past a big-endian signed 32-bit value.
func (b *Buffer) ReadS32Big() (int32, error) {
	v, err := b.ReadU32Big()
	return int32(v), err
}

// ReadS32Little reads and advances past a little-endian signed 32-bit value.
func (b *Buffer) ReadS32Little() (int32, error) {
	v, err := b.ReadU32Little()
	return int32(v), err
}

// ReadU64 reads and advances past a host-endian u64.
func (b *Buffer) ReadU64() (uint64, error) {
	raw, err := b.readFixed(8, true)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// ReadU64Big reads and advances past a big-endian u64.
func (b *Buffer) ReadU64Big() (uint64, error) {
	raw, err := b.readFixed(8, true)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw), nil
}

// ReadU64Little reads and advances past a little-endian u64.
func (b *Buffer) ReadU64Little() (uint64, error) { return b.ReadU64() }

// ReadS64 reads and advances past a host-endian signed 64-bit value.
func (b *Buffer) ReadS64() (int64, error) {
	v, err := b.ReadU64()
	return int64(v), err
}

// ReadS64Big reads and advances past a big-endian signed 64-bit value.
func (b *Buffer) ReadS64Big() (int64, error) {
	v, err := b.ReadU64Big()
	return int64(v), err
}

// ReadS64Little reads and advances past a little-endian signed 64-bit value.
func (b *Buffer) ReadS64Little() (int64, error) {
	v, err := b.ReadU64Little()
	return int64(v), err
}

// ReadFloat reads and advances past a host-endian 32-bit IEEE-754 float.
func (b *Buffer) ReadFloat() (float32, error) {
	raw, err := b.readFixed(4, true)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(raw)), nil
}

// ReadArray reads and advances past n raw bytes, returning a copy.
func (b *Buffer) ReadArray(n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	raw, err := b.readFixed(n, true)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

// SplitInto moves n bytes from the current position into other, which is
// cleared first.
func (b *Buffer) SplitInto(other *Buffer, n uint32) error {
	other.Clear()
	if n == 0 {
		return nil
	}
	if b.position+n > b.size {
		return newPacketError("split exceeds the buffer's size", b.position, b.size, hexDump(b.Data()), 1)
	}
	if err := other.WriteArray(b.data[b.position : b.position+n]); err != nil {
		return err
	}
	other.Rewind()
	return nil
}

// HexDump renders the buffer's meaningful bytes as a canonical hex+ASCII
// dump.
func (b *Buffer) HexDump() string { return hexDump(b.Data()) }

// Compress deflates n bytes beginning at the cursor in place, replacing
// them and adjusting size by the delta. It returns the number of bytes
// written, or 0 on failure.
func (b *Buffer) Compress(n int32) (int32, error) {
	if n == 0 {
		return 0, nil
	}
	if b.position+uint32(n) > b.size {
		return 0, newPacketError("compress range exceeds the buffer's size", b.position, b.size, hexDump(b.Data()), 1)
	}
	src := make([]byte, n)
	copy(src, b.data[b.position:b.position+uint32(n)])

	tail := append([]byte(nil), b.data[b.position+uint32(n):b.size]...)

	out, err := deflate(src)
	if err != nil {
		return 0, nil
	}
	if b.position+uint32(len(out))+uint32(len(tail)) > b.Capacity() {
		return 0, nil
	}
	copy(b.data[b.position:], out)
	copy(b.data[b.position+uint32(len(out)):], tail)
	b.size = b.position + uint32(len(out)) + uint32(len(tail))
	return int32(len(out)), nil
}

// Decompress inflates n bytes beginning at the cursor in place, refusing
// any stream that would exceed the buffer's remaining capacity.
func (b *Buffer) Decompress(n int32) (int32, error) {
	if n <= 0 {
		return 0, nil
	}
	if b.position+uint32(n) > b.size {
		return 0, newPacketError("decompress range exceeds the buffer's size", b.position, b.size, hexDump(b.Data()), 1)
	}
	src := make([]byte, n)
	copy(src, b.data[b.position:b.position+uint32(n)])
	tail := append([]byte(nil), b.data[b.position+uint32(n):b.size]...)

	out, err := inflate(src, int(b.Capacity()-b.position)-len(tail))
	if err != nil {
		return 0, nil
	}
	copy(b.data[b.position:], out)
	copy(b.data[b.position+uint32(len(out)):], tail)
	b.size = b.position + uint32(len(out)) + uint32(len(tail))
	return int32(len(out)), nil
}

// Freeze converts the buffer into a shared read-only View over the same
// backing bytes and invalidates the Buffer, modelling the "write buffer may
// be reconstructed by a move only" rule: once frozen, this Buffer must not
// be used again.
func (b *Buffer) Freeze() *View {
	v := &View{data: b.data, position: b.position, size: b.size}
	b.data = nil
	b.position, b.size = 0, 0
	return v
}

// View shares read-only View's backing into a fresh, independently-cursored
// sub-view covering this buffer's [start, start+length) range without
// copying bytes — used to hand out command bodies that must outlive the
// buffer's own lifecycle without duplicating memory.
func (b *Buffer) View(start, length uint32) (*View, error) {
	if start+length > b.size {
		return nil, newPacketError("view range exceeds the buffer's size", b.position, b.size, hexDump(b.Data()), 1)
	}
	return &View{data: b.data[start : start+length], position: 0, size: length}, nil
}
