package wire

import (
	"testing"

	"github.com/lobbywire/lobbywire/internal/convert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_IntegerRoundTrip(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU32Little(0xDEADBEEF))
	require.NoError(t, b.WriteU16Big(0x1234))
	b.Rewind()

	v, err := b.ReadU32Little()
	require.NoError(t, err)
	require.EqualValues(t, 0xDEADBEEF, v)

	v16, err := b.ReadU16Big()
	require.NoError(t, err)
	require.EqualValues(t, 0x1234, v16)

	require.Zero(t, b.Left())
}

func TestBuffer_EndianRoundTripAllWidths(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU8(0xAB))
	require.NoError(t, b.WriteU16(0x1122))
	require.NoError(t, b.WriteU16Big(0x3344))
	require.NoError(t, b.WriteU16Little(0x5566))
	require.NoError(t, b.WriteU32(0x11223344))
	require.NoError(t, b.WriteU32Big(0x55667788))
	require.NoError(t, b.WriteU32Little(0x99AABBCC))
	require.NoError(t, b.WriteU64(0x1122334455667788))
	require.NoError(t, b.WriteU64Big(0x99AABBCCDDEEFF00))
	require.NoError(t, b.WriteU64Little(0x0011223344556677))
	b.Rewind()

	u8, _ := b.ReadU8()
	require.EqualValues(t, 0xAB, u8)
	u16, _ := b.ReadU16()
	require.EqualValues(t, 0x1122, u16)
	u16b, _ := b.ReadU16Big()
	require.EqualValues(t, 0x3344, u16b)
	u16l, _ := b.ReadU16Little()
	require.EqualValues(t, 0x5566, u16l)
	u32, _ := b.ReadU32()
	require.EqualValues(t, 0x11223344, u32)
	u32b, _ := b.ReadU32Big()
	require.EqualValues(t, 0x55667788, u32b)
	u32l, _ := b.ReadU32Little()
	require.EqualValues(t, 0x99AABBCC, u32l)
	u64, _ := b.ReadU64()
	require.EqualValues(t, 0x1122334455667788, u64)
	u64b, _ := b.ReadU64Big()
	require.EqualValues(t, uint64(0x99AABBCCDDEEFF00), u64b)
	u64l, _ := b.ReadU64Little()
	require.EqualValues(t, 0x0011223344556677, u64l)

	require.Zero(t, b.Left())
}

func TestBuffer_BoundaryWriteAtExactCapacity(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.Seek(MaxPacketSize-4))
	require.NoError(t, b.WriteU32(1))
	require.EqualValues(t, MaxPacketSize, b.Size())

	require.NoError(t, b.Seek(MaxPacketSize-3))
	require.Error(t, b.WriteU32(1))
}

func TestBuffer_ReadPastSizeFailsWithoutAdvancing(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU16(1))
	b.Rewind()

	pos := b.Tell()
	_, err := b.ReadU32()
	require.Error(t, err)
	require.Equal(t, pos, b.Tell())
}

func TestBuffer_ZeroByteOperationsAreNoOps(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteBlank(0))
	require.NoError(t, b.WriteArray(nil))
	require.Zero(t, b.Size())

	other := NewBuffer()
	require.NoError(t, other.WriteU32(42))
	require.NoError(t, b.SplitInto(other, 0))
	require.Zero(t, other.Size())
}

func TestBuffer_StringEncodingRoundTrip_CP1252(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteString32Big(convert.EncodingCP1252, "Café", false))
	b.Rewind()

	s, err := b.ReadString32Big(convert.EncodingCP1252)
	require.NoError(t, err)
	require.Equal(t, "Café", s)
}

func TestBuffer_StringEncodingRoundTrip_CP932(t *testing.T) {
	const phrase = "This is CP-932 encoding: 日本語が大好き！"

	b := NewBuffer()
	require.NoError(t, b.WriteString32Big(convert.EncodingCP932, phrase, false))
	b.Rewind()

	s, err := b.ReadString32Big(convert.EncodingCP932)
	require.NoError(t, err)
	require.Equal(t, phrase, s)
}

func TestBuffer_CompressDecompressRoundTrip(t *testing.T) {
	b := NewBuffer()
	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	require.NoError(t, b.WriteArray(payload))
	b.Rewind()

	written, err := b.Compress(int32(len(payload)))
	require.NoError(t, err)
	require.Greater(t, written, int32(0))

	b.Rewind()
	restored, err := b.Decompress(written)
	require.NoError(t, err)
	require.EqualValues(t, len(payload), restored)

	b.Rewind()
	got, err := b.ReadArray(uint32(restored))
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestBuffer_FreezeThenView(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU16Big(0x1000))
	require.NoError(t, b.WriteArray([]byte("hello")))

	v := b.Freeze()
	require.EqualValues(t, 7, v.Size())

	sub, err := v.Slice(2, 5)
	require.NoError(t, err)
	got, err := sub.ReadArray(5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
}

func TestBuffer_SplitZeroBytes(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU32(1))
	b.Rewind()

	dst := NewBuffer()
	require.NoError(t, dst.WriteU8(9))
	require.NoError(t, b.SplitInto(dst, 0))
	require.Zero(t, dst.Size())
}
