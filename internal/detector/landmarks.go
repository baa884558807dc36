// Package detector provides hand detection interfaces, landmark types and the
// planar geometry used to interpret them.
package detector

import "gonum.org/v1/gonum/spatial/r2"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Handedness labels reported by the tracker.
const (
	Left  = "Left"
	Right = "Right"
)

// Point3D is a landmark in normalized image coordinates. X and Y are in [0,1]
// relative to the frame, Z is depth relative to the wrist.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// XY drops the depth component.
func (p Point3D) XY() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// Distance2D is the Euclidean distance between two landmarks on the image
// plane. Z is ignored.
func Distance2D(a, b Point3D) float64 {
	return r2.Norm(r2.Sub(a.XY(), b.XY()))
}

// Mirror flips a normalized point horizontally (x' = 1 - x). Applying it twice
// returns the original point.
func Mirror(p Point3D) Point3D {
	return Point3D{X: -p.X + 1, Y: p.Y, Z: p.Z}
}

// TrackingPoint returns the middle joint of the index finger, mirrored on the
// x axis so that moving the hand right in front of a selfie camera moves the
// point right.
func (h *HandLandmarks) TrackingPoint() Point3D {
	return Mirror(h.Points[IndexPIP])
}

// PinchDistance is the planar distance between the index fingertip and the
// thumb tip.
func (h *HandLandmarks) PinchDistance() float64 {
	return Distance2D(h.Points[IndexTip], h.Points[ThumbTip])
}
