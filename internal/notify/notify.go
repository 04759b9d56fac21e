// Package notify pushes fall alerts to external notification services
// through shoutrrr URLs. Delivery is best-effort: failures are reported to
// telemetry but never block or suppress the event itself.
package notify

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/errors"
	"github.com/novacare/fallguard-go/internal/logging"
)

// Notifier sends a push notification per fall event.
type Notifier struct {
	sender *router.ServiceRouter
	log    *slog.Logger
}

// New creates a notifier for the configured shoutrrr URLs. Returns nil
// (disabled) when notifications are off or no URLs are configured.
func New(settings *conf.NotificationSettings) (*Notifier, error) {
	if !settings.Enabled || len(settings.Urls) == 0 {
		return nil, nil
	}

	sender, err := shoutrrr.CreateSender(settings.Urls...)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification sender: %w", err)
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	logger := logging.ForService("notify")
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{sender: sender, log: logger}, nil
}

// SendFallAlert pushes a human-readable alert for the event.
func (n *Notifier) SendFallAlert(deviceID string, timestamp time.Time, confidence float64, clipRef string) {
	message := fmt.Sprintf("Fall detected on %s at %s (confidence %.0f%%), clip: %s",
		deviceID, timestamp.Format(time.RFC3339), confidence*100, clipRef)

	params := stypes.Params{}
	params.SetTitle("Fall detected")

	for _, err := range n.sender.Send(message, &params) {
		if err != nil {
			enhanced := errors.New(err).
				Component("notify").
				Category(errors.CategoryNotification).
				Build()
			n.log.Error("failed to send notification", "error", enhanced)
		}
	}
}
