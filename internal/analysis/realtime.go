// Package analysis assembles and runs the realtime fall detection
// pipeline: frame source, pose source, detector, clip buffer and the
// external boundaries.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/novacare/fallguard-go/internal/clip"
	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/datastore"
	"github.com/novacare/fallguard-go/internal/detector"
	"github.com/novacare/fallguard-go/internal/diskmanager"
	"github.com/novacare/fallguard-go/internal/httpserver"
	"github.com/novacare/fallguard-go/internal/logging"
	"github.com/novacare/fallguard-go/internal/mqtt"
	"github.com/novacare/fallguard-go/internal/notify"
	"github.com/novacare/fallguard-go/internal/processor"
	"github.com/novacare/fallguard-go/internal/telemetry"
)

// RealtimeAnalysis runs the detection pipeline until the frame source is
// exhausted or the process receives an interrupt.
func RealtimeAnalysis(settings *conf.Settings) error {
	log := logging.ForService("analysis")
	if log == nil {
		log = slog.Default()
	}

	if err := telemetry.Init(settings); err != nil {
		log.Warn("telemetry initialization failed, continuing without it", "error", err)
	}
	defer telemetry.Flush(2 * time.Second)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The source setting names a replay directory holding frames/*.jpg
	// and a poses.jsonl recorded by the upstream extractor. Live camera
	// ingestion is handled by an external capture process feeding the
	// same layout.
	frameSource, err := NewDirectorySource(filepath.Join(settings.Realtime.Source, "frames"), settings.Clip.FrameRate)
	if err != nil {
		return fmt.Errorf("failed to open frame source: %w", err)
	}
	defer frameSource.Close()

	poseSource, err := NewReplayPoseSource(filepath.Join(settings.Realtime.Source, "poses.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to open pose source: %w", err)
	}
	defer poseSource.Close()

	var ds datastore.Interface
	if settings.Output.SQLite.Enabled {
		ds, err = datastore.New(&settings.Output.SQLite)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
	}

	var mqttClient mqtt.Client
	if settings.Realtime.MQTT.Enabled {
		mqttClient = mqtt.NewClient(settings)
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := mqttClient.Connect(connectCtx); err != nil {
			// Broker outages must not stop detection, the client
			// reconnects in the background
			log.Warn("initial MQTT connection failed", "error", err)
		}
		cancel()
	}

	notifier, err := notify.New(&settings.Realtime.Notification)
	if err != nil {
		return fmt.Errorf("failed to initialize notifications: %w", err)
	}

	var clipWriter clip.Writer
	if settings.Clip.Enabled {
		clipWriter = clip.NewFFmpegWriter(&settings.Clip)
		if settings.Clip.Retention.Policy != "none" {
			go clipCleanupMonitor(ctx, settings, log)
		}
	}

	proc := processor.New(settings, settings.Realtime.Source, poseSource, clipWriter,
		mqttClient, ds, notifier, metrics, detector.SystemClock())
	defer proc.Shutdown()

	if settings.Realtime.WebServer.Enabled {
		server := httpserver.New(settings, proc, ds)
		go server.Start()
		defer server.Shutdown()
	}

	if settings.Realtime.Telemetry.Enabled {
		go serveTelemetry(settings.Realtime.Telemetry.Listen, log)
	}

	log.Info("realtime analysis started", "source", settings.Realtime.Source)

	// Strict per-frame order on a single goroutine: the state machine
	// depends on seeing frames as they arrived
	for {
		frame, err := frameSource.Next(ctx)
		if errors.Is(err, io.EOF) {
			log.Info("frame source exhausted")
			return nil
		}
		if errors.Is(err, context.Canceled) {
			log.Info("shutdown requested")
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame source failed: %w", err)
		}

		proc.ProcessFrame(frame.Data, frame.Timestamp)
	}
}

// clipCleanupMonitor periodically applies the configured clip retention
// policy until the context is cancelled.
func clipCleanupMonitor(ctx context.Context, settings *conf.Settings, log *slog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var err error
			switch settings.Clip.Retention.Policy {
			case "age":
				err = diskmanager.AgeBasedCleanup(ctx.Done(), settings)
			case "usage":
				err = diskmanager.UsageBasedCleanup(ctx.Done(), settings)
			}
			if err != nil {
				log.Error("clip retention cleanup failed", "error", err)
			}
		}
	}
}

// serveTelemetry exposes the Prometheus endpoint on its own listener.
func serveTelemetry(listen string, log *slog.Logger) {
	mux := http.NewServeMux()
	telemetry.RegisterMetricsHandlers(mux)
	server := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("telemetry endpoint stopped", "error", err)
	}
}
