// Package viewer holds the camera parameters of the 3D model viewer and the
// textual encoding the viewer uses for them.
//
// The viewer exposes three attributes:
//
//	cameraOrbit   "{azimuth}deg {polar}deg {radius}m"
//	cameraTarget  "{x}m {y}m {z}m"
//	scale         "{sx} {sy} {sz}"
//
// Parsing never fails: malformed input falls back to documented defaults.
package viewer

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Precision is the number of decimal places written for every value.
const Precision = 3

// Orbit is the camera position around the target in spherical coordinates.
type Orbit struct {
	Azimuth float64 // degrees, wrapped to [0, 360)
	Polar   float64 // degrees, 0 is straight down from above
	Radius  float64 // meters

	// RawRadius holds a radius token that could not be converted to meters,
	// such as "105%" or "auto". FormatOrbit writes it back verbatim.
	RawRadius string
}

// DefaultOrbit is used for missing or malformed cameraOrbit values.
var DefaultOrbit = Orbit{Azimuth: 0, Polar: 75, Radius: 0.7}

// DefaultTarget is used for missing or malformed cameraTarget values.
var DefaultTarget = r3.Vec{}

// DefaultScale is the model scale applied when the viewer loads.
var DefaultScale = r3.Vec{X: 2, Y: 2, Z: 2}

// ParseOrbit decodes a cameraOrbit string. A string that does not have
// exactly three fields yields DefaultOrbit; a malformed angle takes its value
// from DefaultOrbit. Angles accept "deg", "rad" or no unit, the radius
// accepts "m", "cm", "mm" or no unit. Any other radius token is kept in
// RawRadius and Radius takes the default.
func ParseOrbit(s string) Orbit {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return DefaultOrbit
	}

	o := DefaultOrbit
	if v, ok := parseAngle(fields[0]); ok {
		o.Azimuth = v
	}
	if v, ok := parseAngle(fields[1]); ok {
		o.Polar = v
	}
	if v, ok := parseLength(fields[2]); ok {
		o.Radius = v
	} else {
		o.RawRadius = fields[2]
	}
	return o
}

// FormatOrbit encodes an orbit. The azimuth is wrapped to [0, 360) after
// rounding so that the output never reads 360.
func FormatOrbit(o Orbit) string {
	az := WrapDegrees(round(o.Azimuth))
	radius := o.RawRadius
	if radius == "" {
		radius = formatNumber(o.Radius) + "m"
	}
	return formatNumber(az) + "deg " + formatNumber(o.Polar) + "deg " + radius
}

// SetRadius replaces the radius with a value in meters.
func (o *Orbit) SetRadius(meters float64) {
	o.Radius = meters
	o.RawRadius = ""
}

// ParseTarget decodes a cameraTarget string. Malformed fields default to 0,
// a wrong field count yields DefaultTarget.
func ParseTarget(s string) r3.Vec {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return DefaultTarget
	}

	var v [3]float64
	for i, f := range fields {
		if n, ok := parseUnit(f, "m"); ok {
			v[i] = n
		}
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// FormatTarget encodes a camera target.
func FormatTarget(v r3.Vec) string {
	return formatNumber(v.X) + "m " + formatNumber(v.Y) + "m " + formatNumber(v.Z) + "m"
}

// ParseScale decodes a scale string such as "2 2 2". Unlike the camera
// attributes it reports failure, since scales come from user settings.
func ParseScale(s string) (r3.Vec, bool) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return r3.Vec{}, false
	}

	var v [3]float64
	for i, f := range fields {
		n, ok := parseNumber(f)
		if !ok || n <= 0 {
			return r3.Vec{}, false
		}
		v[i] = n
	}
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}, true
}

// FormatScale encodes a model scale without trailing zeros.
func FormatScale(v r3.Vec) string {
	return trimNumber(v.X) + " " + trimNumber(v.Y) + " " + trimNumber(v.Z)
}

// WrapDegrees maps any angle to [0, 360).
func WrapDegrees(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	if w >= 360 {
		w = 0
	}
	return w + 0 // normalizes -0
}

func parseAngle(s string) (float64, bool) {
	if strings.HasSuffix(s, "rad") {
		v, ok := parseNumber(strings.TrimSuffix(s, "rad"))
		return v * 180 / math.Pi, ok
	}
	return parseUnit(s, "deg")
}

func parseLength(s string) (float64, bool) {
	switch {
	case strings.HasSuffix(s, "mm"):
		v, ok := parseNumber(strings.TrimSuffix(s, "mm"))
		return v / 1000, ok
	case strings.HasSuffix(s, "cm"):
		v, ok := parseNumber(strings.TrimSuffix(s, "cm"))
		return v / 100, ok
	}
	return parseUnit(s, "m")
}

func parseUnit(s, unit string) (float64, bool) {
	return parseNumber(strings.TrimSuffix(s, unit))
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func round(v float64) float64 {
	r := scalar.Round(v, Precision)
	if r == 0 {
		return 0
	}
	return r
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(round(v), 'f', Precision, 64)
}

func trimNumber(v float64) string {
	return strconv.FormatFloat(round(v), 'f', -1, 64)
}
