package photon

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultWeights approximates a weak coherent pulse source with a low mean
// photon number: 70% vacuum, 25% single-photon and 5% two-photon pulses.
//
// Note that these weights are fixed, and are not derived from any mean photon
// number. Use PoissonWeights for a source parameterized by its mean.
var DefaultWeights = []float64{0.70, 0.25, 0.05}

// A Categorical samples photon counts from a fixed categorical distribution,
// where the probability of drawing n photons is proportional to the n-th
// weight.
type Categorical struct {
	dist distuv.Categorical
}

// NewCategorical returns a Categorical sampler over weights, drawing its
// randomness from src. A nil src falls back to the global source.
func NewCategorical(weights []float64, src rand.Source) (*Categorical, error) {
	if len(weights) == 0 {
		return nil, errors.New("photon count distribution needs at least one weight")
	}
	var sum float64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative weight for %d photons: %v", i, w)
		}
		sum += w
	}
	if sum == 0 {
		return nil, errors.New("photon count weights must not all be zero")
	}
	// NewCategorical stores src as an interface; keep a nil *rand.Rand from
	// becoming a non-nil Source.
	if r, ok := src.(*rand.Rand); ok && r == nil {
		src = nil
	}
	return &Categorical{dist: distuv.NewCategorical(weights, src)}, nil
}

// NewDefault returns a Categorical sampler over DefaultWeights.
func NewDefault(src rand.Source) *Categorical {
	c, err := NewCategorical(DefaultWeights, src)
	if err != nil {
		panic(fmt.Sprintf("BUG: default photon weights rejected: %v", err))
	}
	return c
}

// Sample implements the Sampler interface.
func (c *Categorical) Sample() int {
	return int(c.dist.Rand())
}

// Prob returns the probability that a pulse carries exactly n photons.
func (c *Categorical) Prob(n int) float64 {
	if n < 0 || n >= c.dist.Len() {
		return 0
	}
	return c.dist.Prob(float64(n))
}

// Mean returns the expected photon count per pulse.
func (c *Categorical) Mean() float64 {
	return c.dist.Mean()
}

// PoissonWeights returns the weights of a photon count distribution truncated
// at maxPhotons, for a coherent source with mean photon number mu. The
// probability of maxPhotons or more photons is folded into the last weight.
func PoissonWeights(mu float64, maxPhotons int) ([]float64, error) {
	if mu <= 0 {
		return nil, fmt.Errorf("mean photon number must be positive, got %v", mu)
	}
	if maxPhotons < 1 {
		return nil, fmt.Errorf("need room for at least one photon, got max %d", maxPhotons)
	}
	p := distuv.Poisson{Lambda: mu}
	w := make([]float64, maxPhotons+1)
	for n := 0; n < maxPhotons; n++ {
		w[n] = p.Prob(float64(n))
	}
	// Survival(x) is P(X > x).
	w[maxPhotons] = p.Survival(float64(maxPhotons - 1))
	return w, nil
}
