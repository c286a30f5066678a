// Package noise provides the read-only lookup tables used by the snow
// shading policy and the snow drift integrator: two 256-entry permutation
// tables, a 256-entry value table and a fixed 5-band color ramp.
//
// Tables are generated once per renderer and never mutated afterwards, so a
// *Tables may be shared by any number of goroutines.
package noise

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/ojrac/opensimplex-go"
)

// TableSize is the number of entries in each noise table.
const TableSize = 256

// valueStep is the spacing of the OpenSimplex samples that fill the value
// table. Adjacent entries stay loosely correlated.
const valueStep = 0.37

// Tables holds the permutation and value tables for cell noise.
type Tables struct {
	PermX  [TableSize]int
	PermY  [TableSize]int
	Values [TableSize]float32
}

// Generate builds deterministic tables from seed.
//
// Permutations are seeded Fisher-Yates shuffles of 0..255. Values are
// normalized OpenSimplex samples remapped to [-1, 1].
func Generate(seed int64) *Tables {
	t := &Tables{}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)) //nolint:gosec // deterministic tables, not crypto

	for i := range TableSize {
		t.PermX[i] = i
		t.PermY[i] = i
	}
	rng.Shuffle(TableSize, func(i, j int) { t.PermX[i], t.PermX[j] = t.PermX[j], t.PermX[i] })
	rng.Shuffle(TableSize, func(i, j int) { t.PermY[i], t.PermY[j] = t.PermY[j], t.PermY[i] })

	sampler := opensimplex.NewNormalized32(seed)
	for i := range TableSize {
		v := sampler.Eval2(float32(i)*valueStep, 0.5)
		t.Values[i] = 2*v - 1
	}
	return t
}

// Cell2 returns a 2-D cell-noise vector for the lattice cell containing p,
// decorrelated per particle by index. Both components lie in [-1, 1].
//
// The result depends only on the integer cell of p, so a particle drifting
// inside one cell sees a constant force.
func (t *Tables) Cell2(x, y, z float32, index int) (float32, float32) {
	ix := int(math32.Floor(x)) & 0xff
	iy := int(math32.Floor(y)) & 0xff
	iz := (int(math32.Floor(z)) + index) & 0xff

	hx := t.PermX[(ix+t.PermY[(iy+t.PermX[iz])&0xff])&0xff]
	hy := t.PermY[(iy+t.PermX[(ix+t.PermY[iz])&0xff])&0xff]
	return t.Values[hx], t.Values[hy]
}

// RampSize is the number of bands in the color ramp.
const RampSize = 5

// Ramp is a piecewise-linear RGB color ramp.
type Ramp [RampSize][3]float32

// SnowRamp is the fixed ramp used for snowflakes: white at the core fading
// to pale blue at the rim.
var SnowRamp = Ramp{
	{1, 1, 1},
	{1, 1, 1},
	{0.8, 0.9, 1},
	{0.8, 0.9, 1},
	{0.8, 0.8, 1},
}

// Lookup interpolates the ramp at coord in [0,1]. Values past 1 clamp to
// the last band and negative values clamp to the first.
func (r *Ramp) Lookup(coord float32) (float32, float32, float32) {
	scaled := coord * (RampSize - 1)
	if scaled < 0 {
		scaled = 0
	}
	base := min(int(scaled), RampSize-1)
	next := min(base+1, RampSize-1)
	f := scaled - float32(base)
	if base == RampSize-1 {
		f = 0
	}

	a, b := r[base], r[next]
	return a[0] + f*(b[0]-a[0]),
		a[1] + f*(b[1]-a[1]),
		a[2] + f*(b[2]-a[2])
}
