package detector

import (
	"math"

	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/pose"
)

// Baseline is the calibrated standing posture, learned over the first
// configured number of valid frames. It is mutated only during calibration
// and immutable once the detector enters monitoring.
type Baseline struct {
	AspectRatio float64
	TiltAngle   float64
	samples     int
}

// ewmaWeight controls how strongly a new calibration sample pulls the
// running baseline, matching the smoothing used during field tuning.
const ewmaWeight = 0.1

// accumulate folds one calibration frame into the baseline. The first
// sample seeds the baseline directly, later samples are smoothed in.
func (b *Baseline) accumulate(m pose.Metrics) {
	b.samples++

	if b.samples == 1 {
		b.AspectRatio = m.AspectRatio
		b.TiltAngle = m.TiltAngle
		return
	}

	b.AspectRatio = (1-ewmaWeight)*b.AspectRatio + ewmaWeight*m.AspectRatio
	b.TiltAngle = (1-ewmaWeight)*b.TiltAngle + ewmaWeight*m.TiltAngle
}

// Samples returns the number of calibration frames consumed.
func (b Baseline) Samples() int { return b.samples }

// Score combines the per-metric indicators into a single fall confidence
// in [0, 1]. Each indicator is normalized to [0, 1] where 1 is strongly
// fall-like; the final score is the weighted sum using the configured
// weights (normalized to sum to 1 at config load).
func Score(m pose.Metrics, b *Baseline, cfg *conf.DetectorSettings) float64 {
	w := cfg.Weights
	t := cfg.Thresholds

	confidence := w.AspectRatio*aspectIndicator(m.AspectRatio, b.AspectRatio, t.AspectRatioDrop) +
		w.Tilt*tiltIndicator(m.TiltAngle, b.TiltAngle, t.TiltAngle) +
		w.Velocity*velocityIndicator(m.VerticalVelocity, t.Velocity) +
		w.HeadHeight*headIndicator(m.HeadY, t.HeadHeight)

	return clamp01(confidence)
}

// aspectIndicator is 1 when the aspect ratio has dropped to the configured
// fraction of the baseline or below, 0 at or above baseline, linear between.
func aspectIndicator(ratio, baseline, drop float64) float64 {
	if baseline <= 0 {
		return 0
	}
	relative := ratio / baseline
	return clamp01((1 - relative) / (1 - drop))
}

// tiltIndicator is 1 when the tilt from vertical has deviated from the
// baseline by the configured angle or more.
func tiltIndicator(tilt, baseline, threshold float64) float64 {
	return clamp01((tilt - baseline) / threshold)
}

// velocityIndicator is 1 when downward velocity reaches the configured
// threshold. Upward movement contributes nothing.
func velocityIndicator(velocity, threshold float64) float64 {
	return clamp01(velocity / threshold)
}

// headIndicator is 0 while the head stays above the configured low-position
// threshold and scales to 1 as the head approaches the bottom of the frame.
func headIndicator(headY, threshold float64) float64 {
	return clamp01((headY - threshold) / (1 - threshold))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
