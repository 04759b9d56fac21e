// Package telemetry wires error reporting and runtime metrics to their
// external boundaries: Sentry for errors, Prometheus for metrics.
package telemetry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/errors"
	"github.com/novacare/fallguard-go/internal/logging"
)

var telemetryLogger *slog.Logger

// Init initializes Sentry error reporting when enabled in settings and
// registers the reporter hook with the errors package. Telemetry failures
// are never fatal: the alerting pipeline runs fine without it.
func Init(settings *conf.Settings) error {
	telemetryLogger = logging.ForService("telemetry")
	if telemetryLogger == nil {
		telemetryLogger = slog.Default()
	}

	if !settings.Realtime.Sentry.Enabled {
		telemetryLogger.Info("Sentry error reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Realtime.Sentry.DSN,
		AttachStacktrace: true,
		// Events carry only component/category metadata, no frame data
		BeforeSend: scrubEvent,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(CaptureError)
	telemetryLogger.Info("Sentry error reporting enabled")
	return nil
}

// scrubEvent strips request and user data before events leave the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.Request = nil
	event.User = sentry.User{}
	return event
}

// CaptureError reports an enhanced error to Sentry with component and
// category tags.
func CaptureError(ee *errors.EnhancedError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())
		if ee.Priority != "" {
			scope.SetTag("priority", ee.Priority)
		}
		for key, value := range ee.GetContext() {
			scope.SetExtra(key, value)
		}
		sentry.CaptureException(ee.Err)
	})
}

// Flush waits for buffered events to be sent, bounded by the given timeout.
// Called during shutdown.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
