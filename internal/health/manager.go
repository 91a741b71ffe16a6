// Package health samples host resource usage and connection counts on a
// fixed interval, folding them into the same status payload the monitor API
// and MQTT telemetry expose.
package health

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/lobbywire/lobbywire/internal/events"
)

// Snapshot is one sample of host and connection health.
type Snapshot struct {
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  uint64    `json:"memory_used_mb"`
	Connections   int       `json:"connections"`
	SampledAt     time.Time `json:"sampled_at"`
}

// ConnectionCounter reports the number of currently live connections, so
// health never needs to import netcore directly.
type ConnectionCounter func() int

// Manager runs a periodic health check goroutine, publishing each sample on
// the event bus and keeping the latest one available via Latest.
type Manager struct {
	eventBus    *events.EventBus
	connections ConnectionCounter

	mu      chan struct{} // binary semaphore guarding latest
	latest  Snapshot
}

// NewManager creates a health Manager. connections may be nil, in which
// case Snapshot.Connections is always reported as 0.
func NewManager(eventBus *events.EventBus, connections ConnectionCounter) *Manager {
	return &Manager{
		eventBus:    eventBus,
		connections: connections,
		mu:          make(chan struct{}, 1),
	}
}

// Start runs the sampling loop until ctx is cancelled, taking one sample
// immediately and then every interval.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.sample(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("health manager stopped")
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

// Latest returns the most recently taken snapshot.
func (m *Manager) Latest() Snapshot {
	m.mu <- struct{}{}
	defer func() { <-m.mu }()
	return m.latest
}

func (m *Manager) sample(ctx context.Context) {
	snap := Snapshot{SampledAt: time.Now()}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	} else if err != nil {
		log.Warn().Err(err).Msg("cpu sample failed")
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vm.UsedPercent
		snap.MemoryUsedMB = vm.Used / (1024 * 1024)
	} else {
		log.Warn().Err(err).Msg("memory sample failed")
	}

	if m.connections != nil {
		snap.Connections = m.connections()
	}

	m.mu <- struct{}{}
	m.latest = snap
	<-m.mu

	log.Debug().
		Float64("cpu_percent", snap.CPUPercent).
		Float64("memory_percent", snap.MemoryPercent).
		Int("connections", snap.Connections).
		Msg("health sample taken")

	if m.eventBus != nil {
		m.eventBus.Emit(ctx, events.Event{
			Type:    events.EventHealthSample,
			Source:  "health",
			Payload: snap,
		})
	}
}
