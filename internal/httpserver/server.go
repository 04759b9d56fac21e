// Package httpserver exposes a small status and event API for the node,
// plus the Prometheus metrics endpoint.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novacare/fallguard-go/internal/buildinfo"
	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/datastore"
	"github.com/novacare/fallguard-go/internal/logging"
	"github.com/novacare/fallguard-go/internal/processor"
)

// StatusResponse is the payload of GET /api/v1/status.
type StatusResponse struct {
	Version             string  `json:"version"`
	DeviceID            string  `json:"device_id"`
	Source              string  `json:"source"`
	State               string  `json:"state"`
	Confidence          float64 `json:"confidence"`
	BaselineAspectRatio float64 `json:"baseline_aspect_ratio"`
	BaselineTiltAngle   float64 `json:"baseline_tilt_angle"`
	BufferedFrames      int     `json:"buffered_frames"`
	Recording           bool    `json:"recording"`
}

// Server is the status HTTP server.
type Server struct {
	echo     *echo.Echo
	settings *conf.Settings
	proc     *processor.Processor
	ds       datastore.Interface
	log      *slog.Logger
}

// New builds the server and registers its routes. ds may be nil when the
// event log is disabled.
func New(settings *conf.Settings, proc *processor.Processor, ds datastore.Interface) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	logger := logging.ForService("httpserver")
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		echo:     e,
		settings: settings,
		proc:     proc,
		ds:       ds,
		log:      logger,
	}

	e.GET("/api/v1/status", s.handleStatus)
	e.GET("/api/v1/events", s.handleEvents)
	e.POST("/api/v1/reset", s.handleReset)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

// Start runs the server until Shutdown is called. Intended to run in its
// own goroutine.
func (s *Server) Start() {
	addr := ":" + s.settings.Realtime.WebServer.Port
	s.log.Info("status server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		s.log.Error("status server stopped", "error", err)
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("status server shutdown failed", "error", err)
	}
}

func (s *Server) handleStatus(c echo.Context) error {
	baseline := s.proc.Detector.BaselineSnapshot()
	return c.JSON(http.StatusOK, StatusResponse{
		Version:             buildinfo.Version,
		DeviceID:            s.settings.Main.DeviceID,
		Source:              s.proc.Source,
		State:               s.proc.Detector.CurrentState().String(),
		Confidence:          s.proc.Detector.LastConfidence(),
		BaselineAspectRatio: baseline.AspectRatio,
		BaselineTiltAngle:   baseline.TiltAngle,
		BufferedFrames:      s.proc.Buffer.Len(),
		Recording:           s.proc.Buffer.Recording(),
	})
}

func (s *Server) handleEvents(c echo.Context) error {
	if s.ds == nil {
		return c.JSON(http.StatusOK, []datastore.FallEvent{})
	}
	events, err := s.ds.GetLast(25)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to query events")
	}
	return c.JSON(http.StatusOK, events)
}

// handleReset is the operator-initiated reset: it returns the detector to
// Idle, forcing recalibration, and cancels any in-flight clip.
func (s *Server) handleReset(c echo.Context) error {
	s.proc.Reset()
	return c.NoContent(http.StatusNoContent)
}
