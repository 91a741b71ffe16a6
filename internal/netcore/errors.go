package netcore

import "errors"

// ErrProtocolViolation covers any malformed handshake or frame: a bad
// magic/base string, a size field that doesn't match what followed, a
// command header truncated mid-stream. It is always terminal for the
// connection, matching the original's SocketError-then-disconnect policy.
var ErrProtocolViolation = errors.New("netcore: protocol violation")

// ErrNotEncrypted is returned if a framed read or write is attempted before
// the handshake has completed.
var ErrNotEncrypted = errors.New("netcore: connection is not yet encrypted")

// ErrClosed is returned by operations attempted on a connection that has
// already been closed.
var ErrClosed = errors.New("netcore: connection closed")

// protocolError wraps ErrProtocolViolation with a human-readable reason,
// the same diagnostic the original's SocketError(message) call logs before
// tearing the connection down. When it wraps a bounds-check failure from
// internal/wire, it keeps the original *wire.PacketError reachable via
// errors.As so the full dump/backtrace can still be logged, without losing
// errors.Is(err, ErrProtocolViolation) classification.
type protocolError struct {
	reason   string
	cause    error
	critical bool
}

func (e *protocolError) Error() string {
	if e.cause != nil {
		return "netcore: " + e.reason + ": " + e.cause.Error()
	}
	return "netcore: " + e.reason
}

func (e *protocolError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrProtocolViolation, e.cause}
	}
	return []error{ErrProtocolViolation}
}

func protoErr(reason string) error { return &protocolError{reason: reason} }

// protoErrWrap is protoErr with an underlying cause preserved for errors.As.
func protoErrWrap(reason string, cause error) error {
	return &protocolError{reason: reason, cause: cause}
}

// protoErrCritical marks a violation CRITICAL rather than plain ERROR
// severity: the frame's own declared size or its decryption failed outright,
// rather than a downstream field failing a bounds check, matching the
// original's escalation of malformed size headers above simple corrupt-field
// warnings.
func protoErrCritical(reason string) error {
	return &protocolError{reason: reason, critical: true}
}

// isCriticalProtocolError reports whether err's protocolError is marked
// critical, for callers deciding between ERROR and CRITICAL log severity.
func isCriticalProtocolError(err error) bool {
	var pe *protocolError
	if errors.As(err, &pe) {
		return pe.critical
	}
	return false
}
