// policy_age.go - age-based clip retention policy
package diskmanager

import (
	"os"
	"time"

	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/errors"
)

// maxDeletionsPerRun bounds one cleanup pass so a huge backlog cannot stall
// the monitor loop.
const maxDeletionsPerRun = 1000

// AgeBasedCleanup removes exported fall clips older than the configured
// retention period, always keeping the configured number of newest clips.
func AgeBasedCleanup(quit <-chan struct{}, settings *conf.Settings) error {
	if diskLogger == nil {
		InitLogger()
	}

	retention := &settings.Clip.Retention
	baseDir := settings.Clip.Path

	retentionHours, err := conf.ParseRetentionPeriod(retention.MaxAge)
	if err != nil {
		diskLogger.Error("invalid retention period", "error", err)
		return err
	}

	clips, err := GetClipFiles(baseDir, retention.Debug)
	if err != nil {
		return errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryFileIO).
			Context("base_dir", baseDir).
			Build()
	}

	expiration := time.Now().Add(-time.Duration(retentionHours) * time.Hour)
	deleted := 0

	for i, clip := range clips {
		select {
		case <-quit:
			diskLogger.Info("cleanup interrupted by quit signal")
			return nil
		default:
		}

		if len(clips)-i <= retention.KeepLast {
			break
		}
		if !clip.Timestamp.Before(expiration) {
			// Clips are sorted oldest first, nothing further expires
			break
		}

		if err := os.Remove(clip.Path); err != nil {
			diskLogger.Error("failed to remove expired clip", "path", clip.Path, "error", err)
			continue
		}
		deleted++

		if retention.Debug {
			diskLogger.Debug("expired clip removed", "path", clip.Path, "age_hours", time.Since(clip.Timestamp).Hours())
		}
		if deleted >= maxDeletionsPerRun {
			diskLogger.Warn("reached per-run deletion limit", "limit", maxDeletionsPerRun)
			break
		}
	}

	if deleted > 0 {
		diskLogger.Info("age retention policy applied", "clips_deleted", deleted)
	}
	return nil
}
