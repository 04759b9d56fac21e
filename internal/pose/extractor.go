package pose

import (
	"errors"
	"math"
	"time"
)

// ErrPoseUnavailable signals that posture cannot be assessed for this frame,
// either because no pose was detected or because too few core landmarks are
// visible. It is not an error condition for the pipeline, only a neutral
// "no evidence" outcome.
var ErrPoseUnavailable = errors.New("pose unavailable")

// minElapsed guards the velocity division against duplicate-timestamp frames
// and clock skew. Frames closer together than this contribute no velocity.
const minElapsed = time.Millisecond

// keyLandmarks are the landmarks considered for the bounding-box extent.
var keyLandmarks = []int{Nose, LeftShoulder, RightShoulder, LeftHip, RightHip, LeftAnkle, RightAnkle}

// ExtractMetrics computes the posture metrics for one frame. It requires
// both shoulders and both hips to pass the visibility threshold; otherwise
// it returns ErrPoseUnavailable. The returned RefPoint replaces prev as the
// velocity reference for the next frame.
//
// ExtractMetrics has no side effects; all state lives in the caller-held
// RefPoint.
func ExtractMetrics(p *Pose, prev RefPoint, now time.Time, visibilityThreshold float64) (Metrics, RefPoint, error) {
	if p == nil {
		return Metrics{}, prev, ErrPoseUnavailable
	}

	core := []int{LeftShoulder, RightShoulder, LeftHip, RightHip}
	visSum := 0.0
	for _, idx := range core {
		if p[idx].Visibility < visibilityThreshold {
			return Metrics{}, prev, ErrPoseUnavailable
		}
		visSum += p[idx].Visibility
	}

	shoulderX := (p[LeftShoulder].X + p[RightShoulder].X) / 2
	shoulderY := (p[LeftShoulder].Y + p[RightShoulder].Y) / 2
	hipX := (p[LeftHip].X + p[RightHip].X) / 2
	hipY := (p[LeftHip].Y + p[RightHip].Y) / 2

	centerY := (shoulderY + hipY) / 2

	m := Metrics{
		AspectRatio: aspectRatio(p, visibilityThreshold),
		TiltAngle:   tiltFromVertical(shoulderX, shoulderY, hipX, hipY),
		HeadY:       p[Nose].Y,
		CenterY:     centerY,
		Visibility:  visSum / float64(len(core)),
	}

	if prev.Valid {
		elapsed := now.Sub(prev.Time)
		if elapsed >= minElapsed {
			// Positive velocity is downward movement
			m.VerticalVelocity = (centerY - prev.CenterY) / elapsed.Seconds()
		}
	}

	return m, RefPoint{CenterY: centerY, Time: now, Valid: true}, nil
}

// aspectRatio returns the height/width extent ratio of the visible key
// landmarks. Tall standing bodies score well above 1, horizontal bodies
// well below.
func aspectRatio(p *Pose, visibilityThreshold float64) float64 {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	visible := 0

	for _, idx := range keyLandmarks {
		if p[idx].Visibility < visibilityThreshold {
			continue
		}
		visible++
		minX = math.Min(minX, p[idx].X)
		maxX = math.Max(maxX, p[idx].X)
		minY = math.Min(minY, p[idx].Y)
		maxY = math.Max(maxY, p[idx].Y)
	}

	if visible < 3 {
		// Not enough extent to judge orientation, assume neutral
		return 1.0
	}

	const epsilon = 1e-6
	return (maxY - minY) / (maxX - minX + epsilon)
}

// tiltFromVertical returns the angle in degrees between the shoulder-hip
// axis and the vertical. 0 is upright, 90 is fully horizontal.
func tiltFromVertical(shoulderX, shoulderY, hipX, hipY float64) float64 {
	dx := math.Abs(shoulderX - hipX)
	dy := math.Abs(shoulderY - hipY)
	return math.Atan2(dx, dy) * 180 / math.Pi
}
