package transform

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/viewer"
)

const tolerance = 1e-6

// fakeCamera records attribute writes.
type fakeCamera struct {
	orbit, target, scale string
	orbitWrites          int
	targetWrites         int
}

func (c *fakeCamera) CameraOrbit() string           { return c.orbit }
func (c *fakeCamera) SetCameraOrbit(orbit string)   { c.orbit = orbit; c.orbitWrites++ }
func (c *fakeCamera) CameraTarget() string          { return c.target }
func (c *fakeCamera) SetCameraTarget(target string) { c.target = target; c.targetWrites++ }
func (c *fakeCamera) SetScale(scale string)         { c.scale = scale }

func TestDefaultSettings_Validate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Errorf("default settings invalid: %v", err)
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{"zero rotate", func(s *Settings) { s.RotateSensitivity = 0 }, "rotate_sensitivity"},
		{"NaN pan", func(s *Settings) { s.PanSensitivity = math.NaN() }, "pan_sensitivity"},
		{"inverted scale allowed", func(s *Settings) { s.ScaleSensitivity = -1 }, ""},
		{"zero min radius", func(s *Settings) { s.MinRadius = 0 }, "min_radius"},
		{"small factor", func(s *Settings) { s.MaxRadiusFactor = 0.5 }, "max_radius_factor"},
		{"polar inverted", func(s *Settings) { s.MinPolar, s.MaxPolar = 90, 10 }, "polar"},
		{"polar above 180", func(s *Settings) { s.MaxPolar = 200 }, "polar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewState(t *testing.T) {
	s := NewState()
	if s.LastRotationPoint != nil || s.LastTranslationPoint != nil || s.LastScaleDistance != nil {
		t.Error("new state should have no references")
	}
	if s.OriginalOrbitRadius != 0.7 {
		t.Errorf("OriginalOrbitRadius = %f, want 0.7", s.OriginalOrbitRadius)
	}

	p := r2.Vec{X: 1}
	d := 1.0
	s.LastRotationPoint, s.LastTranslationPoint, s.LastScaleDistance = &p, &p, &d
	s.ClearReferences()
	if s.LastRotationPoint != nil || s.LastTranslationPoint != nil || s.LastScaleDistance != nil {
		t.Error("ClearReferences should drop all references")
	}
}

func TestEngine_Rotate(t *testing.T) {
	t.Run("first call records only", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{orbit: "10deg 80deg 1m"}

		e.Rotate(&s, cam, r2.Vec{X: 0.5, Y: 0.5})

		if cam.orbitWrites != 0 || cam.orbit != "10deg 80deg 1m" {
			t.Errorf("first call changed the camera: %q (%d writes)", cam.orbit, cam.orbitWrites)
		}
		if s.LastRotationPoint == nil || *s.LastRotationPoint != (r2.Vec{X: 0.5, Y: 0.5}) {
			t.Errorf("reference not recorded: %v", s.LastRotationPoint)
		}
	})

	t.Run("hand left raises azimuth by 40", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{orbit: "0deg 75deg 0.7m"}

		e.Rotate(&s, cam, r2.Vec{X: 0.5, Y: 0.5})
		e.Rotate(&s, cam, r2.Vec{X: 0.4, Y: 0.5})

		o := viewer.ParseOrbit(cam.orbit)
		if !scalar.EqualWithinAbs(o.Azimuth, 40, tolerance) {
			t.Errorf("azimuth = %f, want 40", o.Azimuth)
		}
		if !scalar.EqualWithinAbs(o.Polar, 75, tolerance) {
			t.Errorf("polar = %f, want 75", o.Polar)
		}
		if !scalar.EqualWithinAbs(o.Radius, 0.7, tolerance) {
			t.Errorf("radius = %f, want unchanged 0.7", o.Radius)
		}
		if *s.LastRotationPoint != (r2.Vec{X: 0.4, Y: 0.5}) {
			t.Errorf("reference not advanced: %v", *s.LastRotationPoint)
		}
	})

	t.Run("hand down lowers polar", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{orbit: "0deg 75deg 0.7m"}

		e.Rotate(&s, cam, r2.Vec{X: 0.5, Y: 0.5})
		e.Rotate(&s, cam, r2.Vec{X: 0.5, Y: 0.55})

		o := viewer.ParseOrbit(cam.orbit)
		if !scalar.EqualWithinAbs(o.Polar, 55, tolerance) {
			t.Errorf("polar = %f, want 55", o.Polar)
		}
	})

	t.Run("missing orbit uses defaults", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{}

		e.Rotate(&s, cam, r2.Vec{X: 0.5, Y: 0.5})
		e.Rotate(&s, cam, r2.Vec{X: 0.5, Y: 0.5})

		if cam.orbit != "0.000deg 75.000deg 0.700m" {
			t.Errorf("orbit = %q, want defaults", cam.orbit)
		}
	})

	t.Run("radius in other units passes through", func(t *testing.T) {
		tests := []struct {
			orbit, want string
		}{
			{"0deg 75deg 50cm", "40.000deg 75.000deg 0.500m"},
			{"0deg 75deg 700mm", "40.000deg 75.000deg 0.700m"},
			{"0deg 75deg 105%", "40.000deg 75.000deg 105%"},
			{"0deg 75deg auto", "40.000deg 75.000deg auto"},
		}
		for _, tt := range tests {
			e := NewEngine(DefaultSettings())
			s := NewState()
			cam := &fakeCamera{orbit: tt.orbit}

			e.Rotate(&s, cam, r2.Vec{X: 0.5, Y: 0.5})
			e.Rotate(&s, cam, r2.Vec{X: 0.4, Y: 0.5})

			if cam.orbit != tt.want {
				t.Errorf("Rotate(%q) wrote %q, want %q", tt.orbit, cam.orbit, tt.want)
			}
		}
	})

	t.Run("azimuth wraps below zero", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{orbit: "10deg 90deg 1m"}

		e.Rotate(&s, cam, r2.Vec{X: 0.5, Y: 0.5})
		e.Rotate(&s, cam, r2.Vec{X: 0.55, Y: 0.5}) // -20 degrees

		o := viewer.ParseOrbit(cam.orbit)
		if !scalar.EqualWithinAbs(o.Azimuth, 350, tolerance) {
			t.Errorf("azimuth = %f, want 350", o.Azimuth)
		}
	})
}

func TestEngine_Rotate_Limits(t *testing.T) {
	e := NewEngine(DefaultSettings())
	s := NewState()
	cam := &fakeCamera{orbit: "0deg 90deg 1m"}
	rng := rand.New(rand.NewSource(7))

	p := r2.Vec{X: 0.5, Y: 0.5}
	for i := 0; i < 2000; i++ {
		// Drift upward and left so both angles are pushed past their limits.
		p = r2.Vec{X: p.X + rng.Float64()*0.1 - 0.03, Y: p.Y + rng.Float64()*0.1 - 0.07}
		e.Rotate(&s, cam, p)

		o := viewer.ParseOrbit(cam.orbit)
		if o.Azimuth < 0 || o.Azimuth >= 360 {
			t.Fatalf("frame %d: azimuth %f outside [0, 360)", i, o.Azimuth)
		}
		if o.Polar < 0 || o.Polar > 180 {
			t.Fatalf("frame %d: polar %f outside [0, 180]", i, o.Polar)
		}
	}
}

func TestEngine_Pan(t *testing.T) {
	t.Run("first call records only", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{target: "0m 0m 0m"}

		e.Pan(&s, cam, r2.Vec{X: 0.5, Y: 0.5})

		if cam.targetWrites != 0 {
			t.Errorf("first call wrote target %q", cam.target)
		}
		if s.LastTranslationPoint == nil {
			t.Error("reference not recorded")
		}
	})

	t.Run("right and up", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{target: "0m 0m 0m"}

		e.Pan(&s, cam, r2.Vec{X: 0.5, Y: 0.5})
		e.Pan(&s, cam, r2.Vec{X: 0.6, Y: 0.4})

		// dx = 0.1 moves X up by 0.05; dy = -0.1 moves Y up by 0.05.
		if cam.target != "0.050m 0.050m 0.000m" {
			t.Errorf("target = %q, want %q", cam.target, "0.050m 0.050m 0.000m")
		}
	})

	t.Run("hand down moves target down and keeps Z", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{target: "1m 1m 0.25m"}

		e.Pan(&s, cam, r2.Vec{X: 0.5, Y: 0.5})
		e.Pan(&s, cam, r2.Vec{X: 0.5, Y: 0.7})

		if cam.target != "1.000m 0.900m 0.250m" {
			t.Errorf("target = %q, want %q", cam.target, "1.000m 0.900m 0.250m")
		}
	})

	t.Run("missing target starts at origin", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{}

		e.Pan(&s, cam, r2.Vec{X: 0.2, Y: 0.2})
		e.Pan(&s, cam, r2.Vec{X: 0.0, Y: 0.2})

		if cam.target != "-0.100m 0.000m 0.000m" {
			t.Errorf("target = %q", cam.target)
		}
	})
}

func TestEngine_Scale(t *testing.T) {
	tip := func(x float64) detector.Point3D { return detector.Point3D{X: x, Y: 0.5} }

	t.Run("first call records only", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{orbit: "0deg 75deg 0.7m"}

		e.Scale(&s, cam, tip(0.4), tip(0.6))

		if cam.orbitWrites != 0 {
			t.Errorf("first call wrote orbit %q", cam.orbit)
		}
		if s.LastScaleDistance == nil || !scalar.EqualWithinAbs(*s.LastScaleDistance, 0.2, tolerance) {
			t.Errorf("reference = %v, want 0.2", s.LastScaleDistance)
		}
	})

	t.Run("spreading 0.2 to 0.3 grows radius to 0.8", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		s.OriginalOrbitRadius = 0.7
		cam := &fakeCamera{orbit: "30deg 60deg 0.7m"}

		e.Scale(&s, cam, tip(0.4), tip(0.6))
		e.Scale(&s, cam, tip(0.35), tip(0.65))

		if cam.orbit != "30.000deg 60.000deg 0.800m" {
			t.Errorf("orbit = %q, want %q", cam.orbit, "30.000deg 60.000deg 0.800m")
		}
	})

	t.Run("clamped to twice the original radius", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		s.OriginalOrbitRadius = 0.5
		cam := &fakeCamera{orbit: "0deg 75deg 0.9m"}

		e.Scale(&s, cam, tip(0.5), tip(0.5))
		e.Scale(&s, cam, tip(0.0), tip(1.0))

		o := viewer.ParseOrbit(cam.orbit)
		if !scalar.EqualWithinAbs(o.Radius, 1.0, tolerance) {
			t.Errorf("radius = %f, want 1.0", o.Radius)
		}
	})

	t.Run("unconvertible radius is replaced", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		s.OriginalOrbitRadius = 0.7
		cam := &fakeCamera{orbit: "0deg 75deg auto"}

		e.Scale(&s, cam, tip(0.4), tip(0.6))
		e.Scale(&s, cam, tip(0.35), tip(0.65))

		if cam.orbit != "0.000deg 75.000deg 0.800m" {
			t.Errorf("orbit = %q, want %q", cam.orbit, "0.000deg 75.000deg 0.800m")
		}
	})

	t.Run("clamped to minimum radius", func(t *testing.T) {
		e := NewEngine(DefaultSettings())
		s := NewState()
		cam := &fakeCamera{orbit: "0deg 75deg 0.3m"}

		e.Scale(&s, cam, tip(0.0), tip(1.0))
		e.Scale(&s, cam, tip(0.5), tip(0.5))

		o := viewer.ParseOrbit(cam.orbit)
		if !scalar.EqualWithinAbs(o.Radius, 0.1, tolerance) {
			t.Errorf("radius = %f, want 0.1", o.Radius)
		}
	})
}

func TestEngine_Scale_RadiusStaysInRange(t *testing.T) {
	e := NewEngine(DefaultSettings())
	s := NewState()
	s.OriginalOrbitRadius = 0.7
	cam := &fakeCamera{orbit: "0deg 75deg 0.7m"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		spread := rng.Float64()
		e.Scale(&s, cam, detector.Point3D{X: 0.5 - spread/2, Y: rng.Float64()}, detector.Point3D{X: 0.5 + spread/2, Y: rng.Float64()})

		o := viewer.ParseOrbit(cam.orbit)
		if o.Radius < 0.1-tolerance || o.Radius > 1.4+tolerance {
			t.Fatalf("frame %d: radius %f outside [0.1, 1.4]", i, o.Radius)
		}
	}
}
