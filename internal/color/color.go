// Package color converts between RGB, HSV and the CIE xy chromaticity
// space used natively by Hue lights. Conversions are pure math with no
// device or transport knowledge.
package color

import (
	"fmt"
	"math"
)

// Value is a color in any of the representations a light accepts.
// Implemented by RGB, XY and HSV.
type Value interface {
	colorValue()
}

// RGB holds red, green and blue components in [0.0, 1.0]
type RGB struct {
	R, G, B float64
}

// XY holds a CIE 1931 chromaticity pair
type XY struct {
	X, Y float64
}

// HSV holds hue, saturation and value pre-scaled to the device ranges:
// hue 0..65535, saturation and value 0..255
type HSV struct {
	H uint16
	S uint8
	V uint8
}

func (RGB) colorValue() {}
func (XY) colorValue()  {}
func (HSV) colorValue() {}

// XY converts to CIE chromaticity via gamma correction and the Wide RGB
// D65 conversion matrix.
//
// Pure black has no chromaticity: all matrix terms vanish and the final
// division yields NaN for both coordinates. Turn the light off instead of
// sending black.
func (c RGB) XY() XY {
	r := applyGamma(c.R)
	g := applyGamma(c.G)
	b := applyGamma(c.B)

	x := r*0.664511 + g*0.154324 + b*0.162028
	y := r*0.283881 + g*0.668433 + b*0.047685
	z := r*0.000088 + g*0.072310 + b*0.986039

	sum := x + y + z
	return XY{X: x / sum, Y: y / sum}
}

// HSV converts to device-scaled hue, saturation and value. Black returns
// the zero HSV without entering the hue computation.
func (c RGB) HSV() HSV {
	max := math.Max(c.R, math.Max(c.G, c.B))
	min := math.Min(c.R, math.Min(c.G, c.B))
	if max == 0 {
		return HSV{}
	}

	delta := max - min
	v := max
	s := delta / max

	var h float64
	switch {
	case delta == 0:
		h = 0
	case max == c.R:
		h = (c.G - c.B) / delta
	case max == c.G:
		h = 2 + (c.B-c.R)/delta
	default:
		h = 4 + (c.R-c.G)/delta
	}
	h *= 60
	if h < 0 {
		h += 360
	}

	return HSV{
		H: scaleHue(h),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

// scaleHue maps degrees to the device's 16-bit hue circle.
// round(h*65536/360) reaches 65536 for h just below 360; the circle wraps
// that back to 0.
func scaleHue(deg float64) uint16 {
	scaled := math.Round(deg * 65536 / 360)
	if scaled >= 65536 {
		scaled -= 65536
	}
	return uint16(scaled)
}

func applyGamma(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

// ParseHex parses "#RRGGBB" or "RRGGBB" into an RGB value
func ParseHex(s string) (RGB, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return RGB{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}, nil
}
