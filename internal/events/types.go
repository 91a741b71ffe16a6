// Package events defines event types and enumerations for the lobbywire
// connection-lifecycle event system.
package events

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// Connection lifecycle events, emitted by cmd/lobbyd from its
	// netcore.Server/Connection wiring and consumed by internal/telemetry
	// (MQTT) and internal/api (connection registry). The audit log in
	// internal/db is written directly by cmd/lobbyd, not through the bus.
	EventConnectionAccepted   EventType = "connection_accepted"
	EventHandshakeCompleted   EventType = "handshake_completed"
	EventHandshakeFailed      EventType = "handshake_failed"
	EventConnectionClosed     EventType = "connection_closed"
	EventConnectionIdleClosed EventType = "connection_idle_closed"
	EventProtocolViolation    EventType = "protocol_violation"

	// System events.
	EventConfigChanged EventType = "config_changed"
	EventHealthSample  EventType = "health_sample"
	EventShutdown      EventType = "shutdown"
)

// Event represents a single event in the system.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// ConnectionPayload describes a connection lifecycle transition.
type ConnectionPayload struct {
	RemoteAddr string
	Role       string
}

// HandshakeFailedPayload describes a failed handshake attempt.
type HandshakeFailedPayload struct {
	RemoteAddr string
	Reason     string
}

// ConnectionClosedPayload describes why and after how long a connection
// closed.
type ConnectionClosedPayload struct {
	RemoteAddr string
	DurationMS int64
	Reason     string
}

// ProtocolViolationPayload describes a framing or command error observed on
// a connection, for the audit log and operator-facing alerts.
type ProtocolViolationPayload struct {
	RemoteAddr string
	Message    string
}

// ConfigChangedPayload describes one changed configuration field. No
// component in this module emits EventConfigChanged.
type ConfigChangedPayload struct {
	Section string
	Key     string
	Value   interface{}
}
