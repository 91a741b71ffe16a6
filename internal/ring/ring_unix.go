//go:build unix

package ring

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pageSize returns the platform allocation granularity that ring capacities
// must be rounded up to before the double mapping is established.
func pageSize() int {
	return os.Getpagesize()
}

// mapDouble reserves a 2*capacity address range and maps the same
// capacity-sized file into both halves with MAP_SHARED, so that data[i] and
// data[i+capacity] always alias the same physical byte. This mirrors the
// ring buffer's original POSIX implementation: an immediately-unlinked
// temporary file, reserved once with PROT_NONE to
// pick an address, then mapped twice at fixed offsets within that address
// range.
func mapDouble(capacity int) ([]byte, bool, func() error, error) {
	fd, err := createUnlinkedTempFile()
	if err != nil {
		return nil, false, nil, fmt.Errorf("%w: %v", ErrMemoryMap, err)
	}
	defer unix.Close(fd)

	if err := unix.Ftruncate(fd, int64(capacity)); err != nil {
		return nil, false, nil, fmt.Errorf("%w: ftruncate: %v", ErrMemoryMap, err)
	}

	reserved, err := unix.Mmap(-1, 0, 2*capacity, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, false, nil, fmt.Errorf("%w: reserve: %v", ErrMemoryMap, err)
	}
	base := uintptr(unsafe.Pointer(&reserved[0]))
	if err := unix.Munmap(reserved); err != nil {
		return nil, false, nil, fmt.Errorf("%w: unreserve: %v", ErrMemoryMap, err)
	}

	first, err := mmapFixed(base, fd, capacity)
	if err != nil {
		return nil, false, nil, fmt.Errorf("%w: first half: %v", ErrMemoryMap, err)
	}
	second, err := mmapFixed(base+uintptr(capacity), fd, capacity)
	if err != nil {
		munmapRaw(base, uintptr(capacity))
		return nil, false, nil, fmt.Errorf("%w: second half: %v", ErrMemoryMap, err)
	}
	_ = first
	_ = second

	data := unsafe.Slice((*byte)(unsafe.Pointer(base)), 2*capacity)
	closeFn := func() error {
		return munmapRaw(base, uintptr(2*capacity))
	}
	return data, false, closeFn, nil
}

// mmapFixed maps fd (whole file, length bytes) at the fixed address addr
// using the raw mmap(2) syscall, since golang.org/x/sys/unix's portable
// Mmap wrapper does not expose MAP_FIXED with caller-chosen addresses.
func mmapFixed(addr uintptr, fd int, length int) (uintptr, error) {
	ret, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, uintptr(length),
		uintptr(unix.PROT_READ|unix.PROT_WRITE), uintptr(unix.MAP_SHARED|unix.MAP_FIXED),
		uintptr(fd), 0)
	if errno != 0 {
		return 0, errno
	}
	return ret, nil
}

func munmapRaw(addr uintptr, length uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, length, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// createUnlinkedTempFile creates a file in the default temporary directory
// (os.TempDir) and unlinks it immediately, so its only reference is the open descriptor — matching the
// original's mkstemp-then-unlink idiom.
func createUnlinkedTempFile() (int, error) {
	f, err := os.CreateTemp("", "lobbywire-ring-*")
	if err != nil {
		return -1, err
	}
	name := f.Name()
	fd := int(f.Fd())
	dup, err := unix.Dup(fd)
	f.Close()
	os.Remove(name)
	if err != nil {
		return -1, err
	}
	return dup, nil
}
