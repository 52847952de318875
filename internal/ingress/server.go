package ingress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fluxgate/eventpipe/internal/counters"
	"github.com/fluxgate/eventpipe/internal/events"
	"github.com/fluxgate/eventpipe/internal/ingress/middleware"
	"github.com/fluxgate/eventpipe/internal/queue"
	"github.com/fluxgate/eventpipe/internal/store"
)

const serviceName = "eventpipe"

// Server is the HTTP front door: it validates and enqueues events, and
// serves the read-side endpoints backed by the store, the broker, and the
// process-wide counters.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	config     Config
	startTime  time.Time

	store     store.Store
	broker    queue.Broker
	counters  *counters.Counters
	validator *events.Validator
}

// NewServer wires a Server from its dependencies. store, broker, and
// counters are required — a nil value panics.
func NewServer(cfg Config, logger *slog.Logger, st store.Store, broker queue.Broker, c *counters.Counters) *Server {
	if st == nil || broker == nil || c == nil {
		logger.Error("ingress server requires a store, a broker, and a counters instance")
		panic("ingress: store, broker, and counters must not be nil")
	}

	mux := http.NewServeMux()

	server := &Server{
		logger:    logger,
		config:    cfg,
		store:     st,
		broker:    broker,
		counters:  c,
		validator: events.NewValidator(),
	}

	server.setupRoutes(mux)

	// Middleware executes in the order listed (top-to-bottom):
	//   1. CorrelationID - generate correlation ID for all responses
	//   2. Recovery - catch panics in all downstream middleware
	//   3. RequestLogger - log every request
	//   4. CORS - lightweight header manipulation
	handler := middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithRequestLogger(logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
	)

	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server
}

// Start starts the HTTP server in a goroutine and returns immediately.
// Callers drive shutdown through ctx cancellation followed by Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid ingress configuration: %w", err)
	}

	s.startTime = time.Now()

	go func() {
		s.logger.Info("starting ingress server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_timeout", s.config.ReadTimeout),
			slog.Duration("write_timeout", s.config.WriteTimeout),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("ingress server failed",
				slog.String("address", s.config.Address()),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

// Shutdown gracefully stops the HTTP server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down ingress server", slog.Duration("timeout", s.config.ShutdownTimeout))

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ingress server shutdown failed: %w", err)
	}

	s.logger.Info("ingress server shutdown complete")

	return nil
}
