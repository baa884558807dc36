// Package session runs the per-frame gesture state machine that turns
// tracked hands into viewer camera changes.
package session

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/transform"
	"github.com/ayusman/mudra/internal/viewer"
)

// Settings is the full tuning of a session.
type Settings struct {
	GrabThreshold float64 `json:"grab_threshold"`
	InitialScale  string  `json:"initial_scale"`
	transform.Settings
}

// DefaultSettings returns the standard tuning.
func DefaultSettings() Settings {
	return Settings{
		GrabThreshold: gesture.DefaultGrabThreshold,
		InitialScale:  viewer.FormatScale(viewer.DefaultScale),
		Settings:      transform.DefaultSettings(),
	}
}

// Validate checks every field.
func (s Settings) Validate() error {
	var errs []error
	if !(s.GrabThreshold > 0 && s.GrabThreshold < 1) {
		errs = append(errs, errors.New("grab_threshold must be in (0, 1)"))
	}
	if _, ok := viewer.ParseScale(s.InitialScale); !ok {
		errs = append(errs, fmt.Errorf("initial_scale %q must be three positive numbers", s.InitialScale))
	}
	if err := s.Settings.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ModeObserver is told when the classified mode differs from the previous
// frame's. It is informational; dispatch never depends on it.
type ModeObserver func(from, to gesture.Mode)

// Session owns the gesture references for one viewer. It is not safe for
// concurrent use: HandleFrame, Load, Reset and Apply must all be called from
// the same goroutine.
type Session struct {
	camera     viewer.Camera
	classifier *gesture.Classifier
	engine     *transform.Engine
	settings   Settings
	state      transform.State
	loaded     bool

	observer ModeObserver
	lastMode gesture.Mode
}

// New creates a session writing to camera.
func New(camera viewer.Camera, settings Settings) *Session {
	s := &Session{
		camera:   camera,
		state:    transform.NewState(),
		lastMode: gesture.ModeNoHands,
	}
	s.Apply(settings)
	return s
}

// Apply replaces the tuning. References are kept, so a gesture in progress
// continues with the new sensitivities.
func (s *Session) Apply(settings Settings) {
	s.settings = settings
	s.classifier = gesture.NewClassifier(settings.GrabThreshold)
	s.engine = transform.NewEngine(settings.Settings)
}

// Settings returns the tuning in use.
func (s *Session) Settings() Settings {
	return s.settings
}

// SetObserver registers the mode change observer.
func (s *Session) SetObserver(fn ModeObserver) {
	s.observer = fn
}

// State returns a copy of the current references.
func (s *Session) State() transform.State {
	return s.state
}

// Loaded reports whether Load has run.
func (s *Session) Loaded() bool {
	return s.loaded
}

// Load snapshots the original orbit radius and camera target from the
// attributes the viewer reported at load, not from the camera's current
// values, and applies the initial model scale. Only the first call has an
// effect.
func (s *Session) Load(attrs viewer.Attributes) bool {
	if s.loaded {
		return false
	}
	s.loaded = true

	s.state.OriginalOrbitRadius = viewer.ParseOrbit(attrs.CameraOrbit).Radius
	s.state.OriginalCameraTarget = viewer.ParseTarget(attrs.CameraTarget)

	scale, ok := viewer.ParseScale(s.settings.InitialScale)
	if !ok {
		scale = viewer.DefaultScale
	}
	s.camera.SetScale(viewer.FormatScale(scale))
	return true
}

// OriginalOrbitRadius returns the radius captured at load.
func (s *Session) OriginalOrbitRadius() float64 {
	return s.state.OriginalOrbitRadius
}

// OriginalCameraTarget returns the target captured at load.
func (s *Session) OriginalCameraTarget() r3.Vec {
	return s.state.OriginalCameraTarget
}

// Reset drops every reference, as a frame with no hands does.
func (s *Session) Reset() {
	s.state.ClearReferences()
	s.observe(gesture.ModeNoHands)
}

// HandleFrame classifies one tracker result and applies it. It returns the
// mode the frame was classified as.
func (s *Session) HandleFrame(hands []detector.HandLandmarks) gesture.Mode {
	f := s.classifier.Classify(hands)

	switch f.Mode {
	case gesture.ModeNoHands:
		s.state.ClearReferences()

	case gesture.ModeTwoHands:
		s.engine.Scale(&s.state, s.camera, f.LeftTip, f.RightTip)
		s.state.LastRotationPoint = nil
		s.state.LastTranslationPoint = nil

	case gesture.ModeOneHandGrabbing:
		s.engine.Rotate(&s.state, s.camera, f.Point)
		s.state.LastTranslationPoint = nil
		s.state.LastScaleDistance = nil

	case gesture.ModeOneHandOpen:
		s.engine.Pan(&s.state, s.camera, f.Point)
		s.state.LastRotationPoint = nil
		s.state.LastScaleDistance = nil

	case gesture.ModeUnpaired:
		// Two hands with the same label: nothing to pair, leave references.
	}

	s.observe(f.Mode)
	return f.Mode
}

func (s *Session) observe(mode gesture.Mode) {
	if mode == s.lastMode {
		return
	}
	from := s.lastMode
	s.lastMode = mode
	if s.observer != nil {
		s.observer(from, mode)
	}
}
