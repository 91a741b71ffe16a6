package netcore

import (
	"context"
	"time"
)

// IdleMonitor periodically scans a set of tracked Connections and closes
// any that have made no read progress within the timeout, in the style of
// the teacher's LagMonitor.Start ticker loop — repurposed here from
// "detect a stalled game process" to "detect a stalled connection".
type IdleMonitor struct {
	timeout time.Duration

	register   chan *Connection
	unregister chan *Connection

	// Closed is invoked (if set) whenever the monitor closes a connection
	// for inactivity, so the caller can log it.
	Closed func(*Connection)
}

// NewIdleMonitor creates a monitor that closes any tracked connection idle
// longer than timeout.
func NewIdleMonitor(timeout time.Duration) *IdleMonitor {
	return &IdleMonitor{
		timeout:    timeout,
		register:   make(chan *Connection, 16),
		unregister: make(chan *Connection, 16),
	}
}

// Track adds c to the set of connections the monitor watches. Safe to call
// before or after Start.
func (m *IdleMonitor) Track(c *Connection) { m.register <- c }

// Untrack removes c from the watched set, e.g. once it has been closed for
// another reason.
func (m *IdleMonitor) Untrack(c *Connection) { m.unregister <- c }

// Start runs the periodic scan until ctx is cancelled, checking every
// checkInterval for connections that have exceeded the idle timeout.
func (m *IdleMonitor) Start(ctx context.Context, checkInterval time.Duration) {
	tracked := make(map[*Connection]struct{})
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-m.register:
			tracked[c] = struct{}{}
		case c := <-m.unregister:
			delete(tracked, c)
		case <-ticker.C:
			now := time.Now()
			for c := range tracked {
				if now.Sub(c.LastActivity()) > m.timeout {
					delete(tracked, c)
					c.Close()
					if m.Closed != nil {
						m.Closed(c)
					}
				}
			}
		}
	}
}
