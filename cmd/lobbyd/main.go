// lobbyd is the lobby connection service: it accepts inbound sockets,
// drives each through the Diffie-Hellman handshake, and exposes the
// resulting connection counts, health, and DH-prime state over the
// monitor API and MQTT, in the same shape as the teacher's energizer
// entrypoint wires its manager, API, health, and telemetry together.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lobbywire/lobbywire/internal/api"
	"github.com/lobbywire/lobbywire/internal/cli"
	"github.com/lobbywire/lobbywire/internal/config"
	"github.com/lobbywire/lobbywire/internal/crypto"
	"github.com/lobbywire/lobbywire/internal/db"
	"github.com/lobbywire/lobbywire/internal/events"
	"github.com/lobbywire/lobbywire/internal/health"
	"github.com/lobbywire/lobbywire/internal/netcore"
	"github.com/lobbywire/lobbywire/internal/obs"
	"github.com/lobbywire/lobbywire/internal/telemetry"
)

const AppVersion = "1.0.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "status" {
		apiAddr := config.DefaultConfig().API.ListenAddress
		if len(os.Args) > 2 {
			apiAddr = os.Args[2]
		}
		if err := cli.StatusCommand(apiAddr); err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := obs.Init(obs.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting lobbyd")

	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := obs.Init(obs.Config{
		Level:      cfg.Logging.Level,
		Directory:  cfg.Logging.Directory,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Console:    cfg.Logging.Console,
	}); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Msg("configuration validation failed, please fix the errors above")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := events.NewEventBus()

	store, err := db.NewStore(cfg.Persistence.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open persistence store")
	}

	params, err := loadOrGenerateParams(cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to establish diffie-hellman group")
	}
	var paramsMu sync.Mutex

	registry := api.NewRegistry()
	connLogger := obs.NewConnLogger("netcore")

	listenAddr := net.JoinHostPort(cfg.Server.ListenAddress, fmt.Sprintf("%d", cfg.Server.ListenPort))
	srv, err := netcore.NewServer(listenAddr, params, connLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bind lobby listener")
	}

	idleTimeout := time.Duration(cfg.Server.IdleTimeoutSec) * time.Second
	idleCheck := time.Duration(cfg.Server.IdleCheckInterval) * time.Second
	idleMon := netcore.NewIdleMonitor(idleTimeout)
	idleMon.Closed = func(c *netcore.Connection) {
		remoteAddr := c.RemoteAddr().String()
		log.Info().Str("remote_addr", remoteAddr).Msg("closed idle connection")
		recordAudit(store, remoteAddr, "idle_closed", "")
		eventBus.Emit(ctx, events.Event{
			Type:   events.EventConnectionIdleClosed,
			Source: "netcore",
			Payload: events.ConnectionClosedPayload{
				RemoteAddr: remoteAddr,
				Reason:     "idle timeout",
			},
		})
	}

	srv.HandshakeFailed = func(addr net.Addr, err error) {
		remoteAddr := addr.String()
		log.Warn().Str("remote_addr", remoteAddr).Err(err).Msg("handshake failed")
		recordAudit(store, remoteAddr, "handshake_failed", err.Error())
		eventBus.Emit(ctx, events.Event{
			Type:   events.EventHandshakeFailed,
			Source: "netcore",
			Payload: events.HandshakeFailedPayload{
				RemoteAddr: remoteAddr,
				Reason:     err.Error(),
			},
		})
	}

	srv.Accepted = func(c *netcore.Connection) {
		remoteAddr := c.RemoteAddr().String()
		log.Info().Str("remote_addr", remoteAddr).Msg("connection accepted")

		eventBus.Emit(ctx, events.Event{
			Type:    events.EventConnectionAccepted,
			Source:  "netcore",
			Payload: events.ConnectionPayload{RemoteAddr: remoteAddr, Role: "server"},
		})
		eventBus.Emit(ctx, events.Event{
			Type:    events.EventHandshakeCompleted,
			Source:  "netcore",
			Payload: events.ConnectionPayload{RemoteAddr: remoteAddr, Role: "server"},
		})
		recordAudit(store, remoteAddr, "handshake_completed", "")

		idleMon.Track(c)
		startedAt := time.Now()
		go c.Run()
		go pumpConnection(ctx, c, eventBus, store, idleMon, startedAt)
	}

	healthMgr := health.NewManager(eventBus, registry.Count)

	var mqttHandler *telemetry.MQTTHandler
	if cfg.MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg.MQTT, eventBus)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
			mqttHandler = nil
		}
	}

	apiServer := api.NewServer(cfg, eventBus, registry, healthMgr, store)
	apiServer.ActivePrime = func() string {
		paramsMu.Lock()
		defer paramsMu.Unlock()
		return params.PrimeHex()
	}
	apiServer.RotatePrime = func() (string, error) {
		fresh, err := crypto.GenerateParams()
		if err != nil {
			return "", err
		}
		paramsMu.Lock()
		params = fresh
		paramsMu.Unlock()
		srv.SetParams(fresh)
		if err := store.SavePrime(fresh.PrimeHex()); err != nil {
			return "", err
		}
		if err := cfg.SetPinnedPrimeHex(fresh.PrimeHex()); err != nil {
			log.Warn().Err(err).Msg("failed to persist rotated prime to config")
		}
		return fresh.PrimeHex(), nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", listenAddr).Msg("starting lobby listener")
		if err := srv.Serve(); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("lobby listener stopped")
			errCh <- fmt.Errorf("lobby listener: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		idleMon.Start(ctx, idleCheck)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		healthMgr.Start(ctx, 15*time.Second)
	}()

	if cfg.API.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := apiServer.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("monitor API stopped")
			}
		}()
	}

	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry stopped")
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	}

	log.Info().Msg("shutting down")
	cancel()
	srv.Close()

	eventBus.Emit(context.Background(), events.Event{Type: events.EventShutdown, Source: "main"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(15 * time.Second):
		log.Warn().Msg("shutdown timed out, forcing exit")
	}

	eventBus.Stop()
	log.Info().Msg("lobbyd stopped")
}

// loadOrGenerateParams honors a pinned prime from config first, then a
// prime previously persisted to the audit store, and only generates a
// fresh Diffie-Hellman group if neither is available.
func loadOrGenerateParams(cfg *config.Config, store *db.Store) (*crypto.Params, error) {
	if pinned := cfg.GetCrypto().PinnedPrimeHex; pinned != "" {
		log.Info().Msg("using pinned diffie-hellman prime from config")
		return crypto.LoadParamsHex(pinned)
	}

	saved, err := store.LoadPrime()
	if err != nil {
		return nil, err
	}
	if saved != "" {
		log.Info().Msg("using diffie-hellman prime persisted from a previous run")
		return crypto.LoadParamsHex(saved)
	}

	log.Info().Msg("generating a new diffie-hellman group")
	params, err := crypto.GenerateParams()
	if err != nil {
		return nil, err
	}
	if err := store.SavePrime(params.PrimeHex()); err != nil {
		return nil, err
	}
	return params, nil
}

// pumpConnection drains the connection's decoded messages until it closes
// or a terminal error arrives, then untracks it and emits the appropriate
// lifecycle event.
func pumpConnection(ctx context.Context, c *netcore.Connection, eventBus *events.EventBus, store *db.Store, idleMon *netcore.IdleMonitor, startedAt time.Time) {
	remoteAddr := c.RemoteAddr().String()
	for m := range c.Messages() {
		// The lobby protocol's higher-level command dispatch is out of
		// scope; connections are tracked and framed correctly, but
		// individual command bodies are only logged at debug level.
		log.Debug().Str("remote_addr", remoteAddr).Uint16("code", m.Code).Hex("body", m.Body.Bytes()).Msg("received command")
	}

	idleMon.Untrack(c)
	duration := time.Since(startedAt)

	select {
	case err, ok := <-c.Errors():
		if ok && err != nil {
			reason := err.Error()
			if errors.Is(err, netcore.ErrProtocolViolation) {
				eventBus.Emit(ctx, events.Event{
					Type:    events.EventProtocolViolation,
					Source:  "netcore",
					Payload: events.ProtocolViolationPayload{RemoteAddr: remoteAddr, Message: reason},
				})
			}
			recordAudit(store, remoteAddr, "connection_closed", reason)
			eventBus.Emit(ctx, events.Event{
				Type:   events.EventConnectionClosed,
				Source: "netcore",
				Payload: events.ConnectionClosedPayload{
					RemoteAddr: remoteAddr,
					DurationMS: duration.Milliseconds(),
					Reason:     reason,
				},
			})
			return
		}
	default:
	}

	recordAudit(store, remoteAddr, "connection_closed", "")
	eventBus.Emit(ctx, events.Event{
		Type:   events.EventConnectionClosed,
		Source: "netcore",
		Payload: events.ConnectionClosedPayload{
			RemoteAddr: remoteAddr,
			DurationMS: duration.Milliseconds(),
			Reason:     "closed",
		},
	})
}

func recordAudit(store *db.Store, remoteAddr, event, detail string) {
	if store == nil {
		return
	}
	if err := store.RecordEvent(remoteAddr, event, detail); err != nil {
		log.Debug().Err(err).Msg("failed to record audit event")
	}
}
