package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands []HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenPalmLandmarks returns a right hand with all fingers extended. The thumb
// tip is far from the index tip, so the hand reads as open.
func OpenPalmLandmarks() HandLandmarks {
	h := HandLandmarks{
		Handedness: Right,
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	h.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return h
}

// PinchLandmarks returns a right hand with the index fingertip touching the
// thumb tip, the pose used to grab and rotate.
func PinchLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()

	// Index curls forward to meet the thumb.
	h.Points[IndexPIP] = Point3D{X: 0.60, Y: 0.58, Z: -0.02}
	h.Points[IndexDIP] = Point3D{X: 0.64, Y: 0.58, Z: -0.03}
	h.Points[IndexTip] = Point3D{X: 0.665, Y: 0.60, Z: -0.02}

	h.Points[ThumbIP] = Point3D{X: 0.64, Y: 0.66, Z: 0.0}
	h.Points[ThumbTip] = Point3D{X: 0.68, Y: 0.61, Z: -0.01}

	return h
}

// Translated returns a copy of h with every landmark shifted by (dx, dy).
func Translated(h HandLandmarks, dx, dy float64) HandLandmarks {
	for i := range h.Points {
		h.Points[i].X += dx
		h.Points[i].Y += dy
	}
	return h
}

// WithTrackingPoint returns a copy of h moved so that its TrackingPoint is at
// the mirrored coordinates (x, y).
func WithTrackingPoint(h HandLandmarks, x, y float64) HandLandmarks {
	current := h.TrackingPoint()
	// Mirroring flips the sign of horizontal motion.
	return Translated(h, current.X-x, y-current.Y)
}

// WithHandedness returns a copy of h labelled with handedness.
func WithHandedness(h HandLandmarks, handedness string) HandLandmarks {
	h.Handedness = handedness
	return h
}

// WithIndexTip returns a copy of h whose index fingertip is at (x, y).
func WithIndexTip(h HandLandmarks, x, y float64) HandLandmarks {
	tip := h.Points[IndexTip]
	return Translated(h, x-tip.X, y-tip.Y)
}
