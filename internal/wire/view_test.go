package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lobbywire/lobbywire/internal/convert"
)

func TestView_MirrorsBufferReadSurface(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU8(0xAB))
	require.NoError(t, b.WriteS8(-7))
	require.NoError(t, b.WriteU16(0x1122))
	require.NoError(t, b.WriteU16Big(0x3344))
	require.NoError(t, b.WriteU16Little(0x5566))
	require.NoError(t, b.WriteU32(0x11223344))
	require.NoError(t, b.WriteU32Big(0x55667788))
	require.NoError(t, b.WriteU32Little(0x99AABBCC))
	require.NoError(t, b.WriteU64(0x1122334455667788))
	require.NoError(t, b.WriteU64Big(0x99AABBCCDDEEFF00))
	require.NoError(t, b.WriteU64Little(0x0011223344556677))
	require.NoError(t, b.WriteFloat(3.5))
	b.Rewind()

	v := b.Freeze()

	u8, err := v.ReadU8()
	require.NoError(t, err)
	require.EqualValues(t, 0xAB, u8)

	s8, err := v.ReadS8()
	require.NoError(t, err)
	require.EqualValues(t, -7, s8)

	u16, err := v.ReadU16()
	require.NoError(t, err)
	require.EqualValues(t, 0x1122, u16)

	u16b, err := v.ReadU16Big()
	require.NoError(t, err)
	require.EqualValues(t, 0x3344, u16b)

	u16l, err := v.ReadU16Little()
	require.NoError(t, err)
	require.EqualValues(t, 0x5566, u16l)

	u32, err := v.ReadU32()
	require.NoError(t, err)
	require.EqualValues(t, 0x11223344, u32)

	u32b, err := v.ReadU32Big()
	require.NoError(t, err)
	require.EqualValues(t, 0x55667788, u32b)

	u32l, err := v.ReadU32Little()
	require.NoError(t, err)
	require.EqualValues(t, 0x99AABBCC, u32l)

	u64, err := v.ReadU64()
	require.NoError(t, err)
	require.EqualValues(t, 0x1122334455667788, u64)

	u64b, err := v.ReadU64Big()
	require.NoError(t, err)
	require.EqualValues(t, uint64(0x99AABBCCDDEEFF00), u64b)

	u64l, err := v.ReadU64Little()
	require.NoError(t, err)
	require.EqualValues(t, 0x0011223344556677, u64l)

	f, err := v.ReadFloat()
	require.NoError(t, err)
	require.EqualValues(t, 3.5, f)

	require.Zero(t, v.Left())
}

func TestView_SignedReadVariantsMirrorUnsigned(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU16Big(0xFFFE))
	require.NoError(t, b.WriteU32Little(0xFFFFFFFE))
	b.Rewind()
	v := b.Freeze()

	s16, err := v.ReadS16Big()
	require.NoError(t, err)
	require.EqualValues(t, -2, s16)

	s32, err := v.ReadS32Little()
	require.NoError(t, err)
	require.EqualValues(t, -2, s32)
}

func TestView_PeekVariantsDoNotAdvance(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU32Big(0xCAFEBABE))
	b.Rewind()
	v := b.Freeze()

	peeked, err := v.PeekU32Big()
	require.NoError(t, err)
	require.EqualValues(t, 0xCAFEBABE, peeked)
	require.Zero(t, v.Tell())

	read, err := v.ReadU32Big()
	require.NoError(t, err)
	require.Equal(t, peeked, read)
}

func TestView_StringReadVariantsMirrorBuffer(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteString(convert.EncodingUTF8, "nulterm", true))
	require.NoError(t, b.WriteString16Big(convert.EncodingUTF8, "sixteen", false))
	require.NoError(t, b.WriteString32Little(convert.EncodingUTF8, "thirtytwo", false))
	b.Rewind()
	v := b.Freeze()

	s, err := v.ReadString(convert.EncodingUTF8)
	require.NoError(t, err)
	require.Equal(t, "nulterm", s)

	s16, err := v.ReadString16Big(convert.EncodingUTF8)
	require.NoError(t, err)
	require.Equal(t, "sixteen", s16)

	s32, err := v.ReadString32Little(convert.EncodingUTF8)
	require.NoError(t, err)
	require.Equal(t, "thirtytwo", s32)
}

func TestView_ReadPastSizeProducesDumpAndBacktrace(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.WriteU16(1))
	b.Rewind()
	v := b.Freeze()

	_, err := v.ReadU32()
	require.Error(t, err)

	var packetErr *PacketError
	require.ErrorAs(t, err, &packetErr)
	require.NotEmpty(t, packetErr.Dump)
	require.NotEmpty(t, packetErr.Backtrace)
	require.Contains(t, packetErr.String(), packetErr.Dump)
}
