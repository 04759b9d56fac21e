// policy_usage.go - disk-usage based clip retention policy
package diskmanager

import (
	"os"

	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/errors"
)

// UsageBasedCleanup removes the oldest exported fall clips while disk usage
// of the export filesystem is above the configured threshold, always keeping
// the configured number of newest clips.
func UsageBasedCleanup(quit <-chan struct{}, settings *conf.Settings) error {
	if diskLogger == nil {
		InitLogger()
	}

	retention := &settings.Clip.Retention
	baseDir := settings.Clip.Path

	threshold, err := conf.ParsePercentage(retention.MaxUsage)
	if err != nil {
		diskLogger.Error("invalid usage threshold", "error", err)
		return err
	}

	usage, err := GetDiskUsage(baseDir)
	if err != nil {
		return errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryFileIO).
			Context("base_dir", baseDir).
			Build()
	}
	if usage <= threshold {
		if retention.Debug {
			diskLogger.Debug("disk usage below threshold", "usage", usage, "threshold", threshold)
		}
		return nil
	}

	clips, err := GetClipFiles(baseDir, retention.Debug)
	if err != nil {
		return errors.New(err).
			Component("diskmanager").
			Category(errors.CategoryFileIO).
			Context("base_dir", baseDir).
			Build()
	}

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

		if err := os.Remove(clip.Path); err != nil {
			diskLogger.Error("failed to remove clip", "path", clip.Path, "error", err)
			continue
		}
		deleted++

		usage, err = GetDiskUsage(baseDir)
		if err != nil || usage <= threshold {
			break
		}
		if deleted >= maxDeletionsPerRun {
			diskLogger.Warn("reached per-run deletion limit", "limit", maxDeletionsPerRun)
			break
		}
	}

	if deleted > 0 {
		diskLogger.Info("usage retention policy applied", "clips_deleted", deleted, "usage", usage)
	}
	return nil
}
