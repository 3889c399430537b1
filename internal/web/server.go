package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/face-gate/internal/config"
	"github.com/kozaktomas/face-gate/internal/logger"
	"github.com/kozaktomas/face-gate/internal/web/handlers"
	"github.com/kozaktomas/face-gate/internal/web/middleware"
)

// requestTimeout bounds every non-streaming request.
const requestTimeout = 30 * time.Second

// Server represents the web server
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server

	admin          *handlers.AdminHandler
	sensor         *handlers.SensorHandler
	firmwareSensor *handlers.SensorHandler
	events         *handlers.EventsHandler
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, enroller handlers.Enroller, recognizer handlers.Recognizer, source handlers.EventSource) *Server {
	r := chi.NewRouter()

	sensor := handlers.NewSensorHandler(enroller, recognizer, cfg.Web.MaxSignatureBytes)
	s := &Server{
		config:         cfg,
		router:         r,
		admin:          handlers.NewAdminHandler(enroller),
		sensor:         sensor,
		firmwareSensor: sensor.WithReplies(handlers.FirmwareReplies),
		events:         handlers.NewEventsHandler(source, enroller),
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))

	s.setupRoutes()

	// No WriteTimeout: the event stream stays open indefinitely and every
	// other route is bounded by requestTimeout.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logger.Infof(context.Background(), "starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Infof(ctx, "shutting down web server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
