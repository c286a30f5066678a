// Package scene names the preset particle scenes and builds their initial
// particle stores.
//
// A scene identifier decides three things about a run: the initial
// particles, the integrator that advances them every frame (if any) and the
// shading policy the rasterizer applies. Unknown names are a configuration
// error reported as ErrUnknownScene.
package scene

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/circles/internal/shade"
	"github.com/gogpu/circles/internal/sim"
)

// ErrUnknownScene is returned by Parse for names that are not a scene.
var ErrUnknownScene = errors.New("scene: unknown scene")

// ID identifies a preset scene.
type ID uint8

// Scene identifiers.
const (
	// RGB is three large overlapping red, green and blue circles.
	RGB ID = iota

	// RGBY is RGB plus a yellow circle.
	RGBY

	// Rand10K is 10,000 random circles.
	Rand10K

	// Rand100K is 100,000 random circles.
	Rand100K

	// Rand1M is 1,000,000 small random circles.
	Rand1M

	// BigLittle is large circles at the back covered by small ones.
	BigLittle

	// LittleBig is small circles at the back covered by large ones.
	LittleBig

	// Pattern is a regular grid of circles with a color gradient.
	Pattern

	// BouncingBalls is a row of balls falling onto the floor.
	BouncingBalls

	// Hypnosis is a grid of concentric pulsing rings.
	Hypnosis

	// Fireworks is 15 bursts of 20 sparks each.
	Fireworks

	// Snow is 100,000 drifting snowflakes.
	Snow

	// SnowSingle is one large snowflake.
	SnowSingle

	// Random is a random scene with a caller-chosen particle count.
	Random

	numIDs
)

var names = [numIDs]string{
	RGB:           "rgb",
	RGBY:          "rgby",
	Rand10K:       "rand10k",
	Rand100K:      "rand100k",
	Rand1M:        "rand1m",
	BigLittle:     "biglittle",
	LittleBig:     "littlebig",
	Pattern:       "pattern",
	BouncingBalls: "bouncingballs",
	Hypnosis:      "hypnosis",
	Fireworks:     "fireworks",
	Snow:          "snow",
	SnowSingle:    "snowsingle",
	Random:        "rand",
}

// String returns the scene name accepted by Parse.
func (id ID) String() string {
	if id < numIDs {
		return names[id]
	}
	return fmt.Sprintf("ID(%d)", uint8(id))
}

// Parse returns the scene named name. Matching is case-insensitive.
func Parse(name string) (ID, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if i := slices.Index(names[:], key); i >= 0 {
		return ID(i), nil //nolint:gosec // i < numIDs
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScene, name)
}

// Names returns every scene name in identifier order.
func Names() []string {
	return slices.Clone(names[:])
}

// Valid reports whether id names a scene.
func (id ID) Valid() bool {
	return id < numIDs
}

// IsSnow reports whether the scene uses the snow shading policy and the
// gradient background.
func (id ID) IsSnow() bool {
	return id == Snow || id == SnowSingle
}

// Policy returns the shading policy of the scene.
func (id ID) Policy() shade.Policy {
	if id.IsSnow() {
		return shade.PolicySnow
	}
	return shade.PolicyFlat
}

// Integrator returns the integrator that advances the scene, or sim.None
// for static scenes.
func (id ID) Integrator() sim.Kind {
	switch id {
	case BouncingBalls:
		return sim.BouncingBalls
	case Hypnosis:
		return sim.Hypnosis
	case Fireworks:
		return sim.Fireworks
	case Snow, SnowSingle:
		return sim.Snow
	default:
		return sim.None
	}
}

// DefaultParticles returns the particle count Load uses when Options does
// not override it.
func (id ID) DefaultParticles() int {
	switch id {
	case RGB:
		return 3
	case RGBY:
		return 4
	case Rand10K, BigLittle, LittleBig:
		return 10_000
	case Rand100K, Snow:
		return 100_000
	case Rand1M:
		return 1_000_000
	case Pattern:
		return patternGrid * patternGrid
	case BouncingBalls:
		return 5
	case Hypnosis:
		return hypnosisGrid * hypnosisGrid
	case Fireworks:
		return sim.NumFireworks * (sim.SparksPerFirework + 1)
	case SnowSingle:
		return 1
	case Random:
		return 1_000
	default:
		return 0
	}
}

// Resizable reports whether Options.Particles may change the particle
// count of the scene.
func (id ID) Resizable() bool {
	switch id {
	case Rand10K, Rand100K, Rand1M, BigLittle, LittleBig, BouncingBalls, Snow, Random:
		return true
	default:
		return false
	}
}
