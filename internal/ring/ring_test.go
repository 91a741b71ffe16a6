package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuffer_SingleByteWriteReadRoundTrip(t *testing.T) {
	rb, err := New(4096)
	require.NoError(t, err)
	defer rb.Close()

	const n = 100000
	written := make([]byte, n)
	for i := range written {
		written[i] = byte(i)
	}

	read := make([]byte, n)
	done := make(chan struct{})

	go func() {
		defer close(done)
		got := 0
		for got < n {
			dst := read[got:]
			if len(dst) > 1 {
				dst = dst[:1]
			}
			c := rb.Read(dst)
			got += int(c)
		}
	}()

	for i := 0; i < n; i++ {
		for rb.Write(written[i:i+1]) == 0 {
		}
	}

	<-done
	require.Equal(t, written, read)
	require.Zero(t, rb.Available())
}

func TestBuffer_FreeAvailableInvariant(t *testing.T) {
	rb, err := New(256)
	require.NoError(t, err)
	defer rb.Close()

	usable := rb.Capacity() - 1
	require.Equal(t, usable, rb.Free())
	require.Zero(t, rb.Available())

	n := rb.Write(make([]byte, 10))
	require.EqualValues(t, 10, n)
	require.Equal(t, usable-10, rb.Free())
	require.EqualValues(t, 10, rb.Available())
	require.Equal(t, usable, rb.Free()+rb.Available())
}

func TestBuffer_WriteFailsWhenFull(t *testing.T) {
	rb, err := New(256)
	require.NoError(t, err)
	defer rb.Close()

	usable := rb.Capacity() - 1
	n := rb.Write(make([]byte, usable))
	require.Equal(t, usable, n)
	require.Zero(t, rb.Free())

	n = rb.Write([]byte{1})
	require.Zero(t, n)
}

func TestBuffer_WrapsAroundCleanly(t *testing.T) {
	rb, err := New(64)
	require.NoError(t, err)
	defer rb.Close()

	usable := rb.Capacity() - 1

	first := make([]byte, usable-4)
	for i := range first {
		first[i] = byte(i)
	}
	require.EqualValues(t, len(first), rb.Write(first))

	drain := make([]byte, len(first))
	require.EqualValues(t, len(first), rb.Read(drain))
	require.Equal(t, first, drain)

	second := make([]byte, usable)
	for i := range second {
		second[i] = byte(i + 1)
	}
	require.EqualValues(t, len(second), rb.Write(second))

	got := make([]byte, len(second))
	require.EqualValues(t, len(second), rb.Read(got))
	require.Equal(t, second, got)
}

func TestNew_RejectsTinyCapacity(t *testing.T) {
	_, err := New(1)
	require.ErrorIs(t, err, ErrCapacity)
}
