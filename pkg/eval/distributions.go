package eval

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// distributions implements the primitive sampling functions required by
// spec §4.4. Each takes the already-evaluated argument values and an RNG
// stream scoped to this specific call site.

func sampleNormal(r *rand.Rand, mu, sigma float64) float64 {
	return mu + sigma*r.NormFloat64()
}

func sampleLognormal(r *rand.Rand, mu, sigma float64) float64 {
	return math.Exp(mu + sigma*r.NormFloat64())
}

func sampleUniform(r *rand.Rand, a, b float64) float64 {
	return a + r.Float64()*(b-a)
}

func sampleExponential(r *rand.Rand, lambda float64) float64 {
	return r.ExpFloat64() / lambda
}

// samplePoisson uses Knuth's product-of-uniforms algorithm. Adequate for
// the small-to-moderate lambda values expected of reaction-event counts;
// not used for lambda large enough that L underflows to 0.
func samplePoisson(r *rand.Rand, lambda float64) int64 {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := int64(0)
	p := 1.0
	for {
		k++
		p *= r.Float64()
		if p <= l {
			return k - 1
		}
	}
}

func sampleDiscrete(r *rand.Rand, values []any, weights []float64) (any, error) {
	if len(values) != len(weights) {
		return nil, fmt.Errorf("%w: discrete() values and weights must be the same length", ErrArgCount)
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: discrete() weights must sum to a positive number", ErrType)
	}
	target := r.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if target < acc {
			return values[i], nil
		}
	}
	return values[len(values)-1], nil
}

func sampleChoice(r *rand.Rand, options []any) (any, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: choice() requires at least one option", ErrArgCount)
	}
	return options[r.IntN(len(options))], nil
}
