// Package pose defines body pose landmarks and the per-frame posture metrics
// derived from them. Landmark extraction itself is an external capability;
// this package only consumes its output.
package pose

import (
	"time"
)

// NumLandmarks is the fixed number of landmarks in a full body pose.
const NumLandmarks = 33

// Landmark indices, MediaPipe Pose ordering.
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftHip       = 23
	RightHip      = 24
	LeftAnkle     = 27
	RightAnkle    = 28
)

// Landmark is a single tracked body keypoint. Coordinates are normalized
// to [0, 1] relative to the frame, y growing downward.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Pose is the full fixed-size set of landmarks for one detected person in
// one frame. Absence of a usable pose is represented as a nil *Pose, never
// as a zeroed value.
type Pose [NumLandmarks]Landmark

// Metrics is the record of derived posture scalars for one frame.
type Metrics struct {
	AspectRatio      float64 // bounding-box height/width extent of visible key landmarks
	TiltAngle        float64 // body tilt from vertical in degrees, from the shoulder/hip midpoints
	VerticalVelocity float64 // downward movement of the body center in normalized units per second
	HeadY            float64 // normalized y-coordinate of the head
	CenterY          float64 // normalized y-coordinate of the body center, the velocity reference point
	Visibility       float64 // mean visibility of the core landmarks
}

// RefPoint carries the previous frame's velocity reference between frames.
// The zero value means no previous frame is available.
type RefPoint struct {
	CenterY float64
	Time    time.Time
	Valid   bool
}
