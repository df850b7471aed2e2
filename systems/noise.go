package systems

import (
	"math"
	"math/rand"
)

// GradientNoise is a seeded 2D gradient-noise field. The battlefield
// samples it on the obstacle grid to lay out rock clusters; nothing in
// the simulation needs a third noise dimension.
type GradientNoise struct {
	// Doubled permutation table so corner hashes never need a wrap.
	perm [512]int
}

// NewGradientNoise creates a noise field from the given seed.
func NewGradientNoise(seed int64) *GradientNoise {
	g := &GradientNoise{}
	p := rand.New(rand.NewSource(seed)).Perm(256)
	for i, v := range p {
		g.perm[i] = v
		g.perm[i+256] = v
	}
	return g
}

// At returns the noise value at (x, y), in [-1, 1]. Values at integer
// lattice points are exactly zero.
func (g *GradientNoise) At(x, y float64) float64 {
	xi := int(math.Floor(x)) & 255
	yi := int(math.Floor(y)) & 255
	x -= math.Floor(x)
	y -= math.Floor(y)

	u := fade(x)
	v := fade(y)

	aa := g.perm[g.perm[xi]+yi]
	ab := g.perm[g.perm[xi]+yi+1]
	ba := g.perm[g.perm[xi+1]+yi]
	bb := g.perm[g.perm[xi+1]+yi+1]

	return lerp(v,
		lerp(u, grad2D(aa, x, y), grad2D(ba, x-1, y)),
		lerp(u, grad2D(ab, x, y-1), grad2D(bb, x-1, y-1)))
}

// fade is the quintic smoothstep; zero first and second derivatives at
// the cell boundaries keep the field C2-continuous.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

// grad2D selects one of eight gradient directions (axes and diagonals)
// and projects the corner offset onto it.
func grad2D(hash int, x, y float64) float64 {
	switch hash & 7 {
	case 0:
		return x + y
	case 1:
		return x - y
	case 2:
		return -x + y
	case 3:
		return -x - y
	case 4:
		return x
	case 5:
		return -x
	case 6:
		return y
	default:
		return -y
	}
}
