// Package netcore implements C4 from the module mapping: the per-connection
// handshake state machine and the framed command protocol layered over it,
// plus the accept loop that hands new sockets a shared Diffie-Hellman group.
package netcore

import "github.com/lobbywire/lobbywire/internal/wire"

// Message is one decoded command pulled out of a frame: the connection it
// arrived on, its 16-bit command code, and a read-only view of its body
// bytes. The view shares the frame's backing array rather than copying it.
type Message struct {
	Connection *Connection
	Code       uint16
	Body       *wire.View
}
