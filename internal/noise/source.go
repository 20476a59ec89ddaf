// Package noise owns the seedable random context that feeds every Gaussian
// draw in an episode. Each adapter or rollout worker holds its own Source;
// nothing here is process-global.
package noise

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"gazepomdp/internal/geometry"
)

// Source draws Gaussian samples from a private PCG stream.
type Source struct {
	seed uint64
	src  rand.Source
}

// New returns a Source seeded with seed. Two sources with the same seed
// produce the same sequence.
func New(seed uint64) *Source {
	return &Source{seed: seed, src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
}

// Derive returns an independent Source for the given stream index, used to
// hand each rollout worker its own reproducible stream.
func (s *Source) Derive(stream uint64) *Source {
	return New(s.seed + (stream+1)*0x2545f4914f6cdd1d)
}

func (s *Source) Seed() uint64 {
	return s.seed
}

// Normal draws one sample from N(mu, sigma). A zero sigma returns mu exactly.
func (s *Source) Normal(mu, sigma float64) float64 {
	if sigma == 0 {
		return mu
	}
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

// Jitter adds independent N(0, sigma) noise to each axis of p.
func (s *Source) Jitter(p geometry.Point2D, sigma float64) geometry.Point2D {
	return geometry.Point2D{X: s.Normal(p.X, sigma), Y: s.Normal(p.Y, sigma)}
}

// Float64 returns a uniform sample in [0, 1).
func (s *Source) Float64() float64 {
	return distuv.Uniform{Min: 0, Max: 1, Src: s.src}.Rand()
}
