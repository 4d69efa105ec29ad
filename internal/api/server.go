package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/unistory/storyboard-agent/internal/capture"
	"github.com/unistory/storyboard-agent/internal/export"
	"github.com/unistory/storyboard-agent/internal/storyboard"
	"github.com/unistory/storyboard-agent/internal/video"
)

type Server struct {
	httpServer *http.Server
	grabs      *GrabTracker
	logger     *slog.Logger
}

type ServerConfig struct {
	Port       int
	Storyboard *storyboard.Service
	Player     *video.Player
	Grabber    capture.Grabber
	Doctor     *capture.Doctor
	Repository storyboard.Repository
	Exporter   *export.XLSXWriter
	ExportDir  string
	Logger     *slog.Logger
	StartTime  time.Time
	DeviceID   string

	// Grabs tracks background captures across the server's lifetime.
	// NewServer fills it in when left nil.
	Grabs *GrabTracker
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Grabs == nil {
		cfg.Grabs = NewGrabTracker()
	}
	router := NewRouter(cfg)

	return &Server{
		grabs: cfg.Grabs,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then drains any capture still in
// flight before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.grabs.Drain(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
