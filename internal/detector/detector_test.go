package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novacare/fallguard-go/internal/pose"
)

// fakeClock is a manually advanced clock for cooldown timing.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func uprightPose() *pose.Pose {
	p := &pose.Pose{}
	for i := range p {
		p[i].Visibility = 0.9
	}
	set := func(idx int, x, y float64) {
		p[idx].X = x
		p[idx].Y = y
	}
	set(pose.Nose, 0.5, 0.1)
	set(pose.LeftShoulder, 0.45, 0.3)
	set(pose.RightShoulder, 0.55, 0.3)
	set(pose.LeftHip, 0.45, 0.55)
	set(pose.RightHip, 0.55, 0.55)
	set(pose.LeftAnkle, 0.45, 0.9)
	set(pose.RightAnkle, 0.55, 0.9)
	return p
}

func proneAcrossFloorPose() *pose.Pose {
	p := &pose.Pose{}
	for i := range p {
		p[i].Visibility = 0.9
	}
	set := func(idx int, x, y float64) {
		p[idx].X = x
		p[idx].Y = y
	}
	set(pose.Nose, 0.2, 0.8)
	set(pose.LeftShoulder, 0.3, 0.79)
	set(pose.RightShoulder, 0.3, 0.81)
	set(pose.LeftHip, 0.6, 0.81)
	set(pose.RightHip, 0.6, 0.83)
	set(pose.LeftAnkle, 0.9, 0.8)
	set(pose.RightAnkle, 0.9, 0.82)
	return p
}

// alertRecorder captures fired alert signals.
type alertRecorder struct {
	signals []AlertSignal
}

func (r *alertRecorder) record(sig AlertSignal) {
	r.signals = append(r.signals, sig)
}

// calibrate feeds enough upright frames to complete calibration, returning
// the timestamp of the last frame fed.
func calibrate(t *testing.T, d *Detector, start time.Time, interval time.Duration, frames int) time.Time {
	t.Helper()
	ts := start
	for i := 0; i < frames; i++ {
		d.ProcessPose(uprightPose(), ts)
		ts = ts.Add(interval)
	}
	require.Equal(t, StateMonitoring, d.CurrentState())
	return ts
}

func TestDetectorStartsIdle(t *testing.T) {
	d := New(testDetectorSettings(), newFakeClock(), nil)
	assert.Equal(t, StateIdle, d.CurrentState())
}

func TestDetectorCalibration(t *testing.T) {
	cfg := testDetectorSettings()
	d := New(cfg, newFakeClock(), nil)

	ts := time.Now()
	d.ProcessPose(uprightPose(), ts)
	assert.Equal(t, StateCalibrating, d.CurrentState(), "first valid frame starts calibration")

	for i := 1; i < cfg.CalibrationFrames-1; i++ {
		ts = ts.Add(33 * time.Millisecond)
		d.ProcessPose(uprightPose(), ts)
		assert.Equal(t, StateCalibrating, d.CurrentState())
	}

	ts = ts.Add(33 * time.Millisecond)
	d.ProcessPose(uprightPose(), ts)
	assert.Equal(t, StateMonitoring, d.CurrentState())

	baseline := d.BaselineSnapshot()
	assert.Equal(t, cfg.CalibrationFrames, baseline.Samples())
	assert.InDelta(t, 8.0, baseline.AspectRatio, 0.05)
	assert.InDelta(t, 0.0, baseline.TiltAngle, 0.05)
}

func TestDetectorNilPoseDoesNotAdvanceCalibration(t *testing.T) {
	cfg := testDetectorSettings()
	cfg.CalibrationFrames = 5
	d := New(cfg, newFakeClock(), nil)

	ts := time.Now()
	d.ProcessPose(uprightPose(), ts)
	require.Equal(t, StateCalibrating, d.CurrentState())

	// No-pose frames neither count nor reset progress
	for i := 0; i < 20; i++ {
		ts = ts.Add(33 * time.Millisecond)
		d.ProcessPose(nil, ts)
	}
	assert.Equal(t, StateCalibrating, d.CurrentState())
	assert.Equal(t, 1, d.BaselineSnapshot().Samples())

	for i := 0; i < 4; i++ {
		ts = ts.Add(33 * time.Millisecond)
		d.ProcessPose(uprightPose(), ts)
	}
	assert.Equal(t, StateMonitoring, d.CurrentState())
}

func TestDetectorFallFiresSingleAlert(t *testing.T) {
	cfg := testDetectorSettings()
	clock := newFakeClock()
	rec := &alertRecorder{}
	d := New(cfg, clock, rec.record)

	ts := calibrate(t, d, clock.Now(), 33*time.Millisecond, cfg.CalibrationFrames)

	fallTS := ts.Add(100 * time.Millisecond)
	d.ProcessPose(proneAcrossFloorPose(), fallTS)

	require.Len(t, rec.signals, 1)
	assert.GreaterOrEqual(t, rec.signals[0].Confidence, cfg.AlertThreshold)
	assert.Equal(t, fallTS, rec.signals[0].Timestamp)
	assert.Equal(t, StateCooldown, d.CurrentState(), "alert is transient, detector lands in cooldown")

	// Continued fall-like frames during cooldown must not re-fire
	for i := 0; i < 10; i++ {
		fallTS = fallTS.Add(33 * time.Millisecond)
		d.ProcessPose(proneAcrossFloorPose(), fallTS)
	}
	assert.Len(t, rec.signals, 1)
}

func TestDetectorCooldownIsWallClock(t *testing.T) {
	cfg := testDetectorSettings()
	clock := newFakeClock()
	rec := &alertRecorder{}
	d := New(cfg, clock, rec.record)

	ts := calibrate(t, d, clock.Now(), 33*time.Millisecond, cfg.CalibrationFrames)

	ts = ts.Add(100 * time.Millisecond)
	d.ProcessPose(proneAcrossFloorPose(), ts)
	require.Len(t, rec.signals, 1)
	require.Equal(t, StateCooldown, d.CurrentState())

	// Stand back up during cooldown
	ts = ts.Add(time.Second)
	d.ProcessPose(uprightPose(), ts)
	assert.Equal(t, StateCooldown, d.CurrentState(), "cooldown holds until wall-clock time elapses")

	clock.Advance(6 * time.Second)
	ts = ts.Add(time.Second)
	d.ProcessPose(uprightPose(), ts)
	assert.Equal(t, StateMonitoring, d.CurrentState())

	// A fresh fall after cooldown fires again
	ts = ts.Add(100 * time.Millisecond)
	d.ProcessPose(proneAcrossFloorPose(), ts)
	require.Len(t, rec.signals, 2)
}

func TestDetectorFrameEndingCooldownMayAlert(t *testing.T) {
	cfg := testDetectorSettings()
	clock := newFakeClock()
	rec := &alertRecorder{}
	d := New(cfg, clock, rec.record)

	ts := calibrate(t, d, clock.Now(), 33*time.Millisecond, cfg.CalibrationFrames)

	ts = ts.Add(100 * time.Millisecond)
	d.ProcessPose(proneAcrossFloorPose(), ts)
	require.Len(t, rec.signals, 1)

	// Recover upright, let the cooldown run out, then fall on the very
	// frame that ends it
	ts = ts.Add(time.Second)
	d.ProcessPose(uprightPose(), ts)

	clock.Advance(6 * time.Second)
	ts = ts.Add(100 * time.Millisecond)
	d.ProcessPose(proneAcrossFloorPose(), ts)

	assert.Len(t, rec.signals, 2)
	assert.Equal(t, StateCooldown, d.CurrentState())
}

func TestDetectorReset(t *testing.T) {
	cfg := testDetectorSettings()
	clock := newFakeClock()
	d := New(cfg, clock, nil)

	calibrate(t, d, clock.Now(), 33*time.Millisecond, cfg.CalibrationFrames)

	d.Reset()
	assert.Equal(t, StateIdle, d.CurrentState())
	assert.Equal(t, 0, d.BaselineSnapshot().Samples())
	assert.Zero(t, d.LastConfidence())

	// Next valid frame begins a fresh calibration
	d.ProcessPose(uprightPose(), time.Now())
	assert.Equal(t, StateCalibrating, d.CurrentState())
	assert.Equal(t, 1, d.BaselineSnapshot().Samples())
}

func TestDetectorLastConfidenceTracksMonitoring(t *testing.T) {
	cfg := testDetectorSettings()
	clock := newFakeClock()
	d := New(cfg, clock, nil)

	ts := calibrate(t, d, clock.Now(), 33*time.Millisecond, cfg.CalibrationFrames)

	ts = ts.Add(33 * time.Millisecond)
	d.ProcessPose(uprightPose(), ts)
	assert.InDelta(t, 0.0, d.LastConfidence(), 0.05)
}
