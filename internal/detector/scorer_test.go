package detector

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/pose"
)

// testDetectorSettings mirrors the shipped defaults, with the weights
// already normalized the way config loading does it.
func testDetectorSettings() *conf.DetectorSettings {
	return &conf.DetectorSettings{
		CalibrationFrames: 30,
		AlertThreshold:    0.7,
		CooldownSeconds:   5.0,
		Weights: conf.WeightSettings{
			AspectRatio: 0.25,
			Tilt:        0.25,
			Velocity:    1.0 / 3.0,
			HeadHeight:  1.0 / 6.0,
		},
		Thresholds: conf.ThresholdSettings{
			AspectRatioDrop: 0.5,
			TiltAngle:       45,
			Velocity:        0.5,
			HeadHeight:      0.6,
			Visibility:      0.5,
		},
	}
}

func standingBaseline() *Baseline {
	return &Baseline{AspectRatio: 1.0, TiltAngle: 5.0, samples: 30}
}

func TestScoreStandingPosture(t *testing.T) {
	m := pose.Metrics{
		AspectRatio:      1.0,
		TiltAngle:        5.0,
		VerticalVelocity: 0.0,
		HeadY:            0.2,
	}

	score := Score(m, standingBaseline(), testDetectorSettings())
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestScoreFullFall(t *testing.T) {
	// All four indicators saturated except head height at half strength
	m := pose.Metrics{
		AspectRatio:      0.5,
		TiltAngle:        60.0,
		VerticalVelocity: 0.8,
		HeadY:            0.7,
	}

	score := Score(m, standingBaseline(), testDetectorSettings())

	// 0.25*1 + 0.25*(55/45->1) + (1/3)*1 + (1/6)*0.25
	assert.InDelta(t, 0.875, score, 0.001)
	assert.GreaterOrEqual(t, score, 0.7)
}

func TestScoreUpwardMovementContributesNothing(t *testing.T) {
	m := pose.Metrics{
		AspectRatio:      1.0,
		TiltAngle:        5.0,
		VerticalVelocity: -2.0,
		HeadY:            0.2,
	}

	score := Score(m, standingBaseline(), testDetectorSettings())
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestScoreAlwaysInUnitRange(t *testing.T) {
	cfg := testDetectorSettings()
	b := standingBaseline()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 10000; i++ {
		m := pose.Metrics{
			AspectRatio:      rng.Float64()*20 - 5,
			TiltAngle:        rng.Float64()*360 - 180,
			VerticalVelocity: rng.Float64()*40 - 20,
			HeadY:            rng.Float64()*4 - 2,
		}
		score := Score(m, b, cfg)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
		assert.False(t, math.IsNaN(score))
	}
}

func TestScoreZeroBaseline(t *testing.T) {
	// An unseeded baseline must not blow up the aspect indicator
	m := pose.Metrics{AspectRatio: 0.5, TiltAngle: 60, VerticalVelocity: 1, HeadY: 0.9}
	score := Score(m, &Baseline{}, testDetectorSettings())

	assert.False(t, math.IsNaN(score))
	assert.LessOrEqual(t, score, 1.0)
}

func TestBaselineAccumulate(t *testing.T) {
	b := &Baseline{}

	b.accumulate(pose.Metrics{AspectRatio: 2.0, TiltAngle: 4.0})
	assert.Equal(t, 1, b.Samples())
	assert.InDelta(t, 2.0, b.AspectRatio, 1e-9, "first sample seeds the baseline")
	assert.InDelta(t, 4.0, b.TiltAngle, 1e-9)

	b.accumulate(pose.Metrics{AspectRatio: 3.0, TiltAngle: 14.0})
	assert.Equal(t, 2, b.Samples())
	assert.InDelta(t, 2.1, b.AspectRatio, 1e-9)
	assert.InDelta(t, 5.0, b.TiltAngle, 1e-9)
}

func TestBaselineConvergesToSteadyPosture(t *testing.T) {
	b := &Baseline{}
	for i := 0; i < 30; i++ {
		b.accumulate(pose.Metrics{AspectRatio: 1.0, TiltAngle: 5.0})
	}

	assert.Equal(t, 30, b.Samples())
	assert.InDelta(t, 1.0, b.AspectRatio, 1e-9)
	assert.InDelta(t, 5.0, b.TiltAngle, 1e-9)
}
