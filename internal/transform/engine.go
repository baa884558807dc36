// Package transform applies frame-to-frame hand motion to the viewer camera.
//
// Rotate, Pan and Scale share one pattern: the first call after a reset only
// records a reference and leaves the camera alone, every later call applies
// the delta against the reference and then moves the reference.
package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/viewer"
)

// Settings tunes how far the camera moves per unit of hand motion.
type Settings struct {
	// RotateSensitivity is degrees of orbit per normalized unit of motion.
	RotateSensitivity float64 `json:"rotate_sensitivity"`
	// PanSensitivity is meters of target motion per normalized unit.
	PanSensitivity float64 `json:"pan_sensitivity"`
	// ScaleSensitivity is meters of radius per unit of fingertip spread.
	ScaleSensitivity float64 `json:"scale_sensitivity"`

	MinRadius       float64 `json:"min_radius"`
	MaxRadiusFactor float64 `json:"max_radius_factor"` // times the original radius
	MinPolar        float64 `json:"min_polar"`
	MaxPolar        float64 `json:"max_polar"`
}

// DefaultSettings returns the standard tuning.
func DefaultSettings() Settings {
	return Settings{
		RotateSensitivity: 400,
		PanSensitivity:    0.5,
		ScaleSensitivity:  1.0,
		MinRadius:         0.1,
		MaxRadiusFactor:   2,
		MinPolar:          0,
		MaxPolar:          180,
	}
}

// Validate reports settings that would make the camera unusable.
func (s Settings) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"rotate_sensitivity": s.RotateSensitivity,
		"pan_sensitivity":    s.PanSensitivity,
		"scale_sensitivity":  s.ScaleSensitivity,
	} {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be a non-zero number", name))
		}
	}
	if !(s.MinRadius > 0) {
		errs = append(errs, errors.New("min_radius must be positive"))
	}
	if !(s.MaxRadiusFactor >= 1) {
		errs = append(errs, errors.New("max_radius_factor must be at least 1"))
	}
	if !(s.MinPolar >= 0 && s.MinPolar < s.MaxPolar && s.MaxPolar <= 180) {
		errs = append(errs, errors.New("polar limits must satisfy 0 <= min_polar < max_polar <= 180"))
	}
	return errors.Join(errs...)
}

// State holds the per-session references. A nil reference means the next
// call of that procedure only records.
type State struct {
	LastRotationPoint    *r2.Vec
	LastTranslationPoint *r2.Vec
	LastScaleDistance    *float64

	// Captured once when the viewer loads.
	OriginalOrbitRadius  float64
	OriginalCameraTarget r3.Vec
}

// NewState returns a state with no references and the default radius.
func NewState() State {
	return State{
		OriginalOrbitRadius:  viewer.DefaultOrbit.Radius,
		OriginalCameraTarget: viewer.DefaultTarget,
	}
}

// ClearReferences drops all three references.
func (s *State) ClearReferences() {
	s.LastRotationPoint = nil
	s.LastTranslationPoint = nil
	s.LastScaleDistance = nil
}

// Engine runs the transform procedures with a fixed tuning.
type Engine struct {
	settings Settings
}

// NewEngine creates an Engine.
func NewEngine(settings Settings) *Engine {
	return &Engine{settings: settings}
}

// Settings returns the tuning in use.
func (e *Engine) Settings() Settings {
	return e.settings
}

// MaxRadius is the largest radius Scale allows for the given state.
func (e *Engine) MaxRadius(s *State) float64 {
	return s.OriginalOrbitRadius * e.settings.MaxRadiusFactor
}

// Rotate orbits the camera with a pinching hand. Moving the hand right turns
// the azimuth down and moving it down turns the polar angle down. The
// azimuth wraps to [0, 360), the polar angle is clamped and the radius is
// written back unchanged.
func (e *Engine) Rotate(s *State, cam viewer.Camera, point r2.Vec) {
	if s.LastRotationPoint == nil {
		s.LastRotationPoint = &point
		return
	}

	d := r2.Sub(point, *s.LastRotationPoint)
	thetaChange := -d.X * e.settings.RotateSensitivity
	phiChange := -d.Y * e.settings.RotateSensitivity

	o := viewer.ParseOrbit(cam.CameraOrbit())
	o.Azimuth = viewer.WrapDegrees(o.Azimuth + thetaChange)
	o.Polar = clamp(o.Polar+phiChange, e.settings.MinPolar, e.settings.MaxPolar)
	cam.SetCameraOrbit(viewer.FormatOrbit(o))

	s.LastRotationPoint = &point
}

// Pan moves the camera target with an open hand. Hand right moves the target
// +X, hand down (image y grows) moves it -Y. Z is untouched.
func (e *Engine) Pan(s *State, cam viewer.Camera, point r2.Vec) {
	if s.LastTranslationPoint == nil {
		s.LastTranslationPoint = &point
		return
	}

	d := r2.Sub(point, *s.LastTranslationPoint)

	target := viewer.ParseTarget(cam.CameraTarget())
	target.X += d.X * e.settings.PanSensitivity
	target.Y -= d.Y * e.settings.PanSensitivity
	cam.SetCameraTarget(viewer.FormatTarget(target))

	s.LastTranslationPoint = &point
}

// Scale zooms with two hands. Spreading the index fingertips apart grows the
// radius. The radius stays within [MinRadius, MaxRadius]; when those cross,
// MinRadius wins.
func (e *Engine) Scale(s *State, cam viewer.Camera, leftTip, rightTip detector.Point3D) {
	distance := detector.Distance2D(leftTip, rightTip)

	if s.LastScaleDistance != nil {
		change := distance - *s.LastScaleDistance

		o := viewer.ParseOrbit(cam.CameraOrbit())
		radius := o.Radius + change*e.settings.ScaleSensitivity
		o.SetRadius(math.Max(e.settings.MinRadius, math.Min(e.MaxRadius(s), radius)))
		cam.SetCameraOrbit(viewer.FormatOrbit(o))
	}

	s.LastScaleDistance = &distance
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
