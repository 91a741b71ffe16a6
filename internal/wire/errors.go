package wire

import (
	"fmt"
	"runtime"
	"strings"
)

// PacketError is returned for every bounds violation inside a Buffer or
// View. It carries the same diagnostic payload the original packet
// exception carried: a message, the call site, a best-effort backtrace, and
// a copy of the offending buffer's bytes with the cursor preserved, so a
// caller can log exactly what the C++ PACKET_EXCEPTION macro used to log
// without the process ever unwinding through an exception.
type PacketError struct {
	Message   string
	File      string
	Line      int
	Backtrace []string
	Dump      string
	Position  uint32
	Size      uint32
}

func (e *PacketError) Error() string {
	return fmt.Sprintf("%s (%s:%d) pos=%d size=%d", e.Message, e.File, e.Line, e.Position, e.Size)
}

// newPacketError captures the caller's source location and a short
// best-effort backtrace, then snapshots the buffer's current bytes and
// cursor. skip is the number of additional stack frames to skip past the
// immediate caller of this function (the operation that detected the
// violation).
func newPacketError(msg string, position, size uint32, dump string, skip int) *PacketError {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		file, line = "unknown", 0
	}

	pcs := make([]uintptr, 16)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	bt := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		bt = append(bt, fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}

	return &PacketError{
		Message:   msg,
		File:      file,
		Line:      line,
		Backtrace: bt,
		Dump:      dump,
		Position:  position,
		Size:      size,
	}
}

func (e *PacketError) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", e.Error(), e.Dump)
	for _, frame := range e.Backtrace {
		fmt.Fprintf(&b, "\t%s\n", frame)
	}
	return b.String()
}
