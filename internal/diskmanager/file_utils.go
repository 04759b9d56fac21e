// file_utils.go - shared file management code
package diskmanager

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/novacare/fallguard-go/internal/logging"
)

var diskLogger *slog.Logger

// InitLogger sets up the package logger.
func InitLogger() {
	diskLogger = logging.ForService("diskmanager")
	if diskLogger == nil {
		diskLogger = slog.Default()
	}
}

// ClipInfo holds information about one exported fall clip.
type ClipInfo struct {
	Path       string
	Confidence int
	Timestamp  time.Time
	Size       int64
}

// clipNamePattern matches exported clip names, fall_<confidence>p_<timestamp>.mp4.
var clipNamePattern = regexp.MustCompile(`^fall_(\d+)p_(\d{8}T\d{6}Z)\.mp4$`)

// parseClipName extracts the confidence and capture time from a clip file
// name. Files that do not match the export naming scheme are not ours to
// manage and are skipped.
func parseClipName(name string) (confidence int, timestamp time.Time, err error) {
	match := clipNamePattern.FindStringSubmatch(name)
	if match == nil {
		return 0, time.Time{}, fmt.Errorf("not a fall clip: %s", name)
	}

	confidence, err = strconv.Atoi(match[1])
	if err != nil {
		return 0, time.Time{}, err
	}

	timestamp, err = time.Parse("20060102T150405Z", match[2])
	if err != nil {
		return 0, time.Time{}, err
	}

	return confidence, timestamp, nil
}

// GetClipFiles walks the export directory and returns all managed fall
// clips, oldest first.
func GetClipFiles(baseDir string, debug bool) ([]ClipInfo, error) {
	var clips []ClipInfo

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		confidence, timestamp, err := parseClipName(info.Name())
		if err != nil {
			if debug {
				diskLogger.Debug("skipping unmanaged file", "path", path)
			}
			return nil
		}

		clips = append(clips, ClipInfo{
			Path:       path,
			Confidence: confidence,
			Timestamp:  timestamp,
			Size:       info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk clip directory %s: %w", baseDir, err)
	}

	sort.Slice(clips, func(i, j int) bool {
		return clips[i].Timestamp.Before(clips[j].Timestamp)
	})
	return clips, nil
}
