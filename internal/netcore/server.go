package netcore

import (
	"context"
	"net"
	"sync"

	"github.com/lobbywire/lobbywire/internal/crypto"
	"github.com/lobbywire/lobbywire/internal/network"
)

// Server accepts inbound connections and drives each one through the
// server side of the handshake before handing it to the caller's Accepted
// callback, matching TcpServer::AcceptHandler. Every connection it accepts
// shares the current Diffie-Hellman group (Params): the one the caller
// passes to NewServer, or one installed at runtime via SetParams.
type Server struct {
	listener net.Listener

	paramsMu sync.Mutex
	params   *crypto.Params

	log Logger

	// Accepted is invoked once per successfully handshaken connection, in
	// its own goroutine; the callback owns calling Run and Close.
	Accepted func(*Connection)

	// HandshakeFailed is invoked (if set) whenever a newly accepted socket
	// fails the handshake, so the caller can log it without the server
	// package depending on a concrete logger.
	HandshakeFailed func(net.Addr, error)
}

// NewServer binds addr with SO_REUSEADDR (so a restart can rebind a port
// still in TIME_WAIT) and prepares a Server with params as the shared
// Diffie-Hellman group. Pass params from crypto.GenerateParams() for a
// fresh group each start, or crypto.LoadParamsHex() to pin a persisted one.
func NewServer(addr string, params *crypto.Params, log Logger) (*Server, error) {
	if log == nil {
		log = noopLogger{}
	}
	lc := network.ReuseAddrListenConfig()
	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{listener: listener, params: params, log: log}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// SetParams swaps the Diffie-Hellman group every subsequently accepted
// connection negotiates against. It clones params rather than adopting the
// caller's pointer, so a caller that keeps generating fresh key pairs from
// its own copy (e.g. for an unrelated client dial) never mutates the group
// live connections are mid-handshake against.
func (s *Server) SetParams(params *crypto.Params) {
	cloned := crypto.Clone(params)
	s.paramsMu.Lock()
	s.params = cloned
	s.paramsMu.Unlock()
}

func (s *Server) currentParams() *crypto.Params {
	s.paramsMu.Lock()
	defer s.paramsMu.Unlock()
	return s.params
}

// Close stops accepting new connections.
func (s *Server) Close() error { return s.listener.Close() }

// Serve accepts connections until the listener is closed, handshaking each
// one in its own goroutine so a slow or hostile client cannot stall other
// acceptances.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handshakeAndHandOff(conn)
	}
}

func (s *Server) handshakeAndHandOff(conn net.Conn) {
	c := newConnection(conn, RoleServer, s.currentParams(), s.log)
	if err := c.handshakeServer(); err != nil {
		s.log.Warn("handshake failed", map[string]any{
			"remote_addr": conn.RemoteAddr().String(),
			"error":       err.Error(),
		})
		conn.Close()
		if s.HandshakeFailed != nil {
			s.HandshakeFailed(conn.RemoteAddr(), err)
		}
		return
	}
	if s.Accepted != nil {
		s.Accepted(c)
	}
}
