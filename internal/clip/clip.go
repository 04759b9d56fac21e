// Package clip packages finalized frame sequences into playable video
// files and hands them to the storage boundary.
package clip

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/novacare/fallguard-go/internal/framebuffer"
)

// Clip is an immutable finalized frame sequence with its event metadata.
// Ownership passes to the storage boundary once written.
type Clip struct {
	EventID    string
	Source     string
	Confidence float64
	Anchor     time.Time
	Start      time.Time
	End        time.Time
	Frames     []framebuffer.Frame
}

// Writer is the storage sink capability. Write stores the clip and returns
// a reference (path or URL) to it. Failures are best-effort from the
// pipeline's perspective and never suppress event emission.
type Writer interface {
	Write(ctx context.Context, c *Clip) (string, error)
}

// GenerateClipName constructs the export-relative clip path, partitioned
// by year and month, e.g. 2026/08/fall_87p_20260830T101502Z.mp4.
func GenerateClipName(basePath string, confidence float64, anchor time.Time) string {
	formattedConfidence := fmt.Sprintf("%.0fp", confidence*100)
	timestamp := anchor.Format("20060102T150405Z")
	year := anchor.Format("2006")
	month := anchor.Format("01")

	base := strings.TrimSuffix(basePath, "/")
	return fmt.Sprintf("%s/%s/%s/fall_%s_%s.mp4", base, year, month, formattedConfidence, timestamp)
}
