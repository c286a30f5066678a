// Package shade computes the contribution of one circle to one pixel and
// blends it into a pixel accumulator.
//
// The blend rule is order dependent:
//
//	color' = a*src + (1-a)*color
//	alpha' = alpha + a
//
// Alpha accumulates without clamping, so blending A then B differs from B
// then A whenever both are partially transparent. Callers must apply circles
// in ascending particle index to get reproducible pixels.
package shade

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/circles/internal/noise"
	"github.com/gogpu/circles/particle"
)

// Policy selects how a circle is colored.
type Policy uint8

const (
	// PolicyFlat draws the particle color at a constant alpha.
	PolicyFlat Policy = iota
	// PolicySnow draws a radial ramp with depth-attenuated Gaussian alpha.
	PolicySnow
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyFlat:
		return "flat"
	case PolicySnow:
		return "snow"
	default:
		return "unknown"
	}
}

// Shading constants.
const (
	// FlatAlpha is the alpha of every circle under PolicyFlat.
	FlatAlpha float32 = 0.5
	// SnowMaxAlpha scales the depth-dependent base alpha of a snowflake.
	SnowMaxAlpha float32 = 0.5
	// SnowFalloff is the Gaussian falloff scale across a snowflake.
	SnowFalloff float32 = 4
)

// Color is a float RGBA pixel value. Alpha may exceed 1.
type Color struct {
	R, G, B, A float32
}

// White is the default background.
var White = Color{1, 1, 1, 1}

// Blend applies the source color (r, g, b) with alpha a over c.
func (c Color) Blend(r, g, b, a float32) Color {
	inv := 1 - a
	return Color{
		R: a*r + inv*c.R,
		G: a*g + inv*c.G,
		B: a*b + inv*c.B,
		A: c.A + a,
	}
}

// Params is the immutable shading context shared by every tile of a frame.
type Params struct {
	Policy Policy
	Ramp   *noise.Ramp
}

// NewParams returns shading parameters for policy using the snow ramp.
func NewParams(policy Policy) Params {
	return Params{Policy: policy, Ramp: &noise.SnowRamp}
}

// Shade blends circle i of v into acc for the pixel centered at (px, py).
// It reports whether the pixel center lies inside the circle; when it does
// not, acc is left unchanged.
func (p Params) Shade(acc *Color, px, py float32, v particle.View, i int) bool {
	pos := v.Position(i)
	rad := v.Radius(i)

	dx := pos.X - px
	dy := pos.Y - py
	dist2 := dx*dx + dy*dy
	if dist2 > rad*rad {
		return false
	}

	var r, g, b, a float32
	switch p.Policy {
	case PolicySnow:
		ramp := p.Ramp
		if ramp == nil {
			ramp = &noise.SnowRamp
		}
		d := math32.Sqrt(dist2) / rad
		r, g, b = ramp.Lookup(d)
		base := 0.6 + 0.4*(1-pos.Z)
		base = math32.Max(math32.Min(base, 1), 0)
		a = SnowMaxAlpha * base * math32.Exp(-SnowFalloff*d*d)
	default:
		c := v.Color(i)
		r, g, b = c.X, c.Y, c.Z
		a = FlatAlpha
	}

	*acc = acc.Blend(r, g, b, a)
	return true
}

// Background returns the clear color of a pixel row for the policy.
// Snow scenes use a vertical gradient, dark at the top row and light at the
// bottom; other scenes clear to white.
func (p Params) Background(row, height int) Color {
	if p.Policy != PolicySnow || height <= 0 {
		return White
	}
	s := 0.4 + 0.45*float32(row+1)/float32(height)
	return Color{s, s, s, 1}
}
