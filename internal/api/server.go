package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lobbywire/lobbywire/internal/config"
	"github.com/lobbywire/lobbywire/internal/db"
	"github.com/lobbywire/lobbywire/internal/events"
	"github.com/lobbywire/lobbywire/internal/health"
	"github.com/lobbywire/lobbywire/internal/network"
)

// Server is the monitor REST API for lobbywire, adapted from the teacher's
// Gin-based API server but scoped to a read/control surface over connection
// counts, per-connection status, and DH-prime rotation — never the excluded
// HTTP login page or HTML template substitution.
type Server struct {
	cfg      *config.Config
	eventBus *events.EventBus
	registry *Registry
	health   *health.Manager
	store    *db.Store

	// ActivePrime, when set, returns the hex of the DH group currently in
	// use, and RotatePrime (if set) generates and pins a fresh one.
	ActivePrime func() string
	RotatePrime func() (string, error)

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a new monitor API server.
func NewServer(cfg *config.Config, eventBus *events.EventBus, registry *Registry, h *health.Manager, store *db.Store) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, eventBus: eventBus, registry: registry, health: h, store: store}
	s.subscribeRegistry()
	return s
}

// subscribeRegistry keeps the connection registry in sync with the
// lifecycle events netcore.Server emits.
func (s *Server) subscribeRegistry() {
	s.eventBus.Subscribe(events.EventConnectionAccepted, "api.registry.accepted", func(ctx context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.ConnectionPayload); ok {
			s.registry.Accept(p.RemoteAddr)
		}
		return nil
	})
	s.eventBus.Subscribe(events.EventHandshakeCompleted, "api.registry.handshaked", func(ctx context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.ConnectionPayload); ok {
			s.registry.SetStatus(p.RemoteAddr, "encrypted")
		}
		return nil
	})
	s.eventBus.Subscribe(events.EventConnectionClosed, "api.registry.closed", func(ctx context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.ConnectionClosedPayload); ok {
			s.registry.Remove(p.RemoteAddr)
		}
		return nil
	})
	s.eventBus.Subscribe(events.EventConnectionIdleClosed, "api.registry.idleClosed", func(ctx context.Context, e events.Event) error {
		if p, ok := e.Payload.(events.ConnectionClosedPayload); ok {
			s.registry.Remove(p.RemoteAddr)
		}
		return nil
	})
}

// Start builds the router and serves it until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         s.cfg.API.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().Str("addr", s.cfg.API.ListenAddress).Msg("monitor API starting")

	lc := network.ReuseAddrListenConfig()
	listener, err := lc.Listen(ctx, "tcp", s.cfg.API.ListenAddress)
	if err != nil {
		return fmt.Errorf("monitor API listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("monitor API error: %w", err)
	}
	return nil
}

// Stop gracefully stops the monitor API server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	allowedOrigins := s.cfg.API.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	rateLimiter := NewRateLimiter(100)
	router.Use(rateLimiter.Middleware())

	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
	}

	monitor := router.Group("/api/monitor")
	{
		monitor.GET("/status", s.handleGetStatus)
		monitor.GET("/connections", s.handleGetConnections)
		monitor.GET("/prime", s.handleGetPrime)
		monitor.POST("/prime/rotate", s.handleRotatePrime)
		monitor.GET("/audit", s.handleGetAudit)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}
