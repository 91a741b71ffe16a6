package netcore

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/lobbywire/lobbywire/internal/crypto"
	"github.com/lobbywire/lobbywire/internal/wire"
)

// Role distinguishes which side of the handshake a Connection plays:
// the original's ROLE_CLIENT/ROLE_SERVER.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "server"
	}
	return "client"
}

// Status is the connection's position in the handshake state machine,
// matching the original's STATUS_* sequence: a client walks
// NotConnected -> Connecting -> Connected -> WaitingEncryption -> Encrypted;
// a server-accepted connection starts at Connected and walks the same tail.
type Status int

const (
	StatusNotConnected Status = iota
	StatusConnecting
	StatusConnected
	StatusWaitingEncryption
	StatusEncrypted
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusWaitingEncryption:
		return "waiting_encryption"
	case StatusEncrypted:
		return "encrypted"
	default:
		return "not_connected"
	}
}

// Logger is the minimal logging surface netcore depends on, so this
// package never imports zerolog directly — internal/obs supplies the
// concrete adapter. Keeping the interface here (rather than importing
// zerolog) is what lets this core package stay dependency-light while the
// rest of the module still logs through zerolog end to end.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, err error, fields map[string]any)
	Critical(msg string, err error, fields map[string]any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, map[string]any)           {}
func (noopLogger) Warn(string, map[string]any)            {}
func (noopLogger) Error(string, error, map[string]any)    {}
func (noopLogger) Critical(string, error, map[string]any) {}

// Connection wraps one accepted or dialed TCP socket through the handshake
// and into steady-state framed traffic. Exactly one goroutine drives each
// Connection's read loop (Run); Send may be called concurrently from any
// goroutine once the connection reaches StatusEncrypted.
type Connection struct {
	mu sync.Mutex

	conn net.Conn
	role Role

	status Status

	params        *crypto.Params
	keyPair       *crypto.KeyPair
	encryptionKey []byte

	messages chan *Message
	errs     chan error

	log Logger

	lastActivity time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

// newConnection wraps conn for role, sharing params (the server's pinned or
// freshly generated Diffie-Hellman group). A client dialing out generates
// its own params from whatever the server sends during the handshake, so
// params may be nil here and filled in once the prime arrives.
func newConnection(conn net.Conn, role Role, params *crypto.Params, log Logger) *Connection {
	if log == nil {
		log = noopLogger{}
	}
	return &Connection{
		conn:         conn,
		role:         role,
		status:       StatusConnected,
		params:       params,
		messages:     make(chan *Message, 64),
		errs:         make(chan error, 1),
		log:          log,
		lastActivity: time.Now(),
		closed:       make(chan struct{}),
	}
}

// Dial opens a new client connection and performs the handshake against
// addr. The returned Connection is in StatusEncrypted and ready for
// Messages()/Send(); the caller must still call Run to start the frame
// read loop.
func Dial(addr string, log Logger) (*Connection, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	c := newConnection(conn, RoleClient, nil, log)
	c.status = StatusConnecting
	if err := c.handshakeClient(); err != nil {
		c.logReadError(err)
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Status returns the connection's current handshake state.
func (c *Connection) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// RemoteAddr returns the underlying socket's remote address.
func (c *Connection) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Messages returns the channel Run delivers decoded commands on. It is
// closed when the connection's read loop exits.
func (c *Connection) Messages() <-chan *Message { return c.messages }

// Errors returns the channel a terminal connection error (protocol
// violation, transport failure) is delivered on, at most once.
func (c *Connection) Errors() <-chan error { return c.errs }

// LastActivity reports when the connection last made progress reading a
// frame, for idle-timeout supervision (see idle.go).
func (c *Connection) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

func (c *Connection) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Connection) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

// Close tears down the underlying socket. Safe to call more than once and
// from any goroutine.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// Run drives the connection's steady-state frame read loop until the
// socket closes or a protocol violation occurs, delivering decoded
// Messages and, on exit, at most one terminal error. Run must be called
// after the handshake completes (StatusEncrypted); Dial and the Server's
// accept path (handshakeAndHandOff) both leave the connection in that state.
func (c *Connection) Run() {
	defer close(c.messages)
	for {
		msgs, err := c.readFrame()
		if err != nil {
			c.logReadError(err)
			select {
			case c.errs <- err:
			default:
			}
			return
		}
		c.touch()
		for _, m := range msgs {
			select {
			case c.messages <- m:
			case <-c.closed:
				return
			}
		}
	}
}

// logReadError reports Run's terminal read error at the severity spec's
// error taxonomy assigns it. A plain transport error (peer disconnect, EOF)
// is unremarkable and logged at Debug; anything wrapping
// ErrProtocolViolation is logged at ERROR or CRITICAL, with the offending
// wire.PacketError's full dump and backtrace attached whenever the failing
// bounds check produced one, matching spec's "all errors are logged with
// severity ERROR or CRITICAL ... backtrace ... hex dump" requirement.
func (c *Connection) logReadError(err error) {
	if !errors.Is(err, ErrProtocolViolation) {
		c.log.Debug("connection read loop exited", map[string]any{
			"remote_addr": c.RemoteAddr().String(),
			"error":       err.Error(),
		})
		return
	}

	fields := map[string]any{"remote_addr": c.RemoteAddr().String()}
	var packetErr *wire.PacketError
	if errors.As(err, &packetErr) {
		fields["dump"] = packetErr.String()
	}

	if isCriticalProtocolError(err) {
		c.log.Critical("protocol violation", err, fields)
		return
	}
	c.log.Error("protocol violation", err, fields)
}
