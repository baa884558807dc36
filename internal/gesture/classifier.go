// Package gesture classifies a frame of tracked hands into the camera
// manipulation mode it requests.
package gesture

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/mudra/internal/detector"
)

// DefaultGrabThreshold is the index-to-thumb tip distance, in normalized image
// units, below which a hand counts as pinching.
const DefaultGrabThreshold = 0.05

// Mode is the gesture a frame asks for.
type Mode string

const (
	// ModeNoHands means nothing is tracked. All references are dropped.
	ModeNoHands Mode = "no_hands"
	// ModeTwoHands means a Left and a Right hand are present: scale.
	ModeTwoHands Mode = "two_hands"
	// ModeOneHandGrabbing means a single pinching hand: rotate.
	ModeOneHandGrabbing Mode = "one_hand_grabbing"
	// ModeOneHandOpen means a single open hand: pan.
	ModeOneHandOpen Mode = "one_hand_open"
	// ModeUnpaired means two or more hands without a Left/Right pair. No
	// gesture fires and no reference is touched.
	ModeUnpaired Mode = "unpaired"
)

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Frame is the classified view of one tracker result.
type Frame struct {
	Mode Mode

	// Point is the mirrored tracking point of the primary hand. Set for the
	// one-hand modes.
	Point r2.Vec

	// LeftTip and RightTip are the index fingertips of the paired hands. Set
	// for ModeTwoHands.
	LeftTip  detector.Point3D
	RightTip detector.Point3D
}

// Classifier turns detected hands into a Frame.
type Classifier struct {
	grabThreshold float64
}

// NewClassifier creates a Classifier. Non-positive thresholds fall back to
// DefaultGrabThreshold.
func NewClassifier(grabThreshold float64) *Classifier {
	if grabThreshold <= 0 {
		grabThreshold = DefaultGrabThreshold
	}
	return &Classifier{grabThreshold: grabThreshold}
}

// GrabThreshold returns the pinch threshold in use.
func (c *Classifier) GrabThreshold() float64 {
	return c.grabThreshold
}

// IsGrabbing reports whether the hand's index tip and thumb tip are closer
// than the threshold. There is no hysteresis.
func (c *Classifier) IsGrabbing(hand *detector.HandLandmarks) bool {
	if hand == nil {
		return false
	}
	return hand.PinchDistance() < c.grabThreshold
}

// Classify decides the mode for one frame. The first reported hand is the
// primary hand. A Left/Right pair takes precedence over the pose of either
// hand; with duplicate labels the last hand of each label wins.
func (c *Classifier) Classify(hands []detector.HandLandmarks) Frame {
	switch len(hands) {
	case 0:
		return Frame{Mode: ModeNoHands}
	case 1:
		primary := &hands[0]
		f := Frame{Point: primary.TrackingPoint().XY()}
		if c.IsGrabbing(primary) {
			f.Mode = ModeOneHandGrabbing
		} else {
			f.Mode = ModeOneHandOpen
		}
		return f
	}

	tips := make(map[string]detector.Point3D, 2)
	for i := range hands {
		tips[hands[i].Handedness] = hands[i].Points[detector.IndexTip]
	}

	left, hasLeft := tips[detector.Left]
	right, hasRight := tips[detector.Right]
	if len(hands) == 2 && hasLeft && hasRight {
		return Frame{Mode: ModeTwoHands, LeftTip: left, RightTip: right}
	}

	return Frame{Mode: ModeUnpaired}
}
