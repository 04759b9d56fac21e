// Package detector implements the fall detection state machine: calibration
// of a standing baseline, confidence scoring of incoming posture metrics,
// single-fire alerting and cooldown debouncing.
package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/logging"
	"github.com/novacare/fallguard-go/internal/pose"
)

// State is the detector lifecycle state. Exactly one live detector exists
// per camera source.
type State int

const (
	StateIdle State = iota
	StateCalibrating
	StateMonitoring
	StateAlert
	StateCooldown
)

// String returns the state name for logging and the status API.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCalibrating:
		return "calibrating"
	case StateMonitoring:
		return "monitoring"
	case StateAlert:
		return "alert"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// AlertSignal carries the details of a fired fall alert.
type AlertSignal struct {
	Confidence float64
	Timestamp  time.Time
}

// AlertFunc is invoked exactly once per Monitoring->Alert transition.
type AlertFunc func(AlertSignal)

// Detector converts a stream of per-frame poses into debounced fall alerts.
// ProcessPose must be called from a single goroutine per detector; the
// status accessors are safe to call concurrently.
type Detector struct {
	cfg   *conf.DetectorSettings
	clock Clock
	log   *slog.Logger

	alertFn AlertFunc

	mu             sync.RWMutex
	state          State
	baseline       Baseline
	ref            pose.RefPoint
	cooldownUntil  time.Time
	lastConfidence float64
}

// New creates a detector in the Idle state. The alert callback may be nil.
func New(cfg *conf.DetectorSettings, clock Clock, alertFn AlertFunc) *Detector {
	logger := logging.ForService("detector")
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		cfg:     cfg,
		clock:   clock,
		log:     logger,
		alertFn: alertFn,
		state:   StateIdle,
	}
}

// ProcessPose advances the state machine with one frame. A nil pose means
// the pose source saw no usable person this frame; it never resets
// calibration and is neutral while monitoring.
func (d *Detector) ProcessPose(p *pose.Pose, ts time.Time) {
	metrics, ref, err := pose.ExtractMetrics(p, d.refPoint(), ts, d.cfg.Thresholds.Visibility)
	if err != nil {
		// Signal absence: no evidence either way
		d.log.Log(context.TODO(), logging.LevelTrace, "no usable pose", "state", d.CurrentState().String())
		return
	}
	d.setRefPoint(ref)

	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.state {
	case StateIdle:
		// First valid metrics start a fresh calibration
		d.state = StateCalibrating
		d.baseline = Baseline{}
		d.baseline.accumulate(metrics)
		d.log.Info("calibration started", "frames_needed", d.cfg.CalibrationFrames)

	case StateCalibrating:
		d.baseline.accumulate(metrics)
		if d.baseline.Samples() >= d.cfg.CalibrationFrames {
			d.state = StateMonitoring
			d.log.Info("calibration complete",
				"baseline_aspect_ratio", d.baseline.AspectRatio,
				"baseline_tilt", d.baseline.TiltAngle)
		}

	case StateMonitoring:
		confidence := Score(metrics, &d.baseline, d.cfg)
		d.lastConfidence = confidence
		if d.cfg.Debug {
			d.log.Debug("frame scored", "confidence", confidence)
		}
		if confidence >= d.cfg.AlertThreshold {
			d.fireAlert(confidence, ts)
		}

	case StateCooldown:
		confidence := Score(metrics, &d.baseline, d.cfg)
		d.lastConfidence = confidence
		if !d.clock.Now().Before(d.cooldownUntil) {
			d.state = StateMonitoring
			d.log.Info("cooldown elapsed, monitoring resumed")
			// The frame that ends cooldown may itself alert
			if confidence >= d.cfg.AlertThreshold {
				d.fireAlert(confidence, ts)
			}
		}

	case StateAlert:
		// Unreachable: Alert is transient within fireAlert
	}
}

// fireAlert emits the alert signal once and enters cooldown. Caller holds
// the lock.
func (d *Detector) fireAlert(confidence float64, ts time.Time) {
	d.state = StateAlert
	d.log.Warn("fall detected", "confidence", confidence, "timestamp", ts)

	if d.alertFn != nil {
		d.alertFn(AlertSignal{Confidence: confidence, Timestamp: ts})
	}

	d.cooldownUntil = d.clock.Now().Add(d.cooldownDuration())
	d.state = StateCooldown
}

// Reset returns the detector to Idle from any state, discarding the
// baseline. The next valid frame begins a fresh calibration.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = StateIdle
	d.baseline = Baseline{}
	d.ref = pose.RefPoint{}
	d.cooldownUntil = time.Time{}
	d.lastConfidence = 0
	d.log.Info("detector reset")
}

// CurrentState returns the current state.
func (d *Detector) CurrentState() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// BaselineSnapshot returns a copy of the calibrated baseline.
func (d *Detector) BaselineSnapshot() Baseline {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.baseline
}

// LastConfidence returns the most recent confidence score.
func (d *Detector) LastConfidence() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastConfidence
}

func (d *Detector) cooldownDuration() time.Duration {
	return time.Duration(d.cfg.CooldownSeconds * float64(time.Second))
}

func (d *Detector) refPoint() pose.RefPoint {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ref
}

func (d *Detector) setRefPoint(ref pose.RefPoint) {
	d.mu.Lock()
	d.ref = ref
	d.mu.Unlock()
}
