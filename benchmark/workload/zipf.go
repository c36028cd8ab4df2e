// Package workload generates key access sequences for cache simulations.
package workload

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Zipf generates n keys in [0, keySpace) following a Zipfian distribution.
// theta controls the skew (higher = more skewed) and must lie in (0, 1).
// The same seed always yields the same sequence.
func Zipf(n, keySpace int, theta float64, seed uint64) ([]int, error) {
	if keySpace < 1 {
		return nil, fmt.Errorf("workload: key space must be positive, got %d", keySpace)
	}
	if theta <= 0 || theta >= 1 {
		return nil, fmt.Errorf("workload: theta must be in (0, 1), got %v", theta)
	}

	rng := rand.New(rand.NewPCG(seed, seed+1))
	keys := make([]int, n)

	spread := keySpace + 1
	zeta2 := zeta(2, theta)
	zetaN := zeta(uint64(spread), theta)
	alpha := 1.0 / (1.0 - theta)
	eta := (1 - math.Pow(2.0/float64(spread), 1.0-theta)) / (1.0 - zeta2/zetaN)
	halfPowTheta := 1.0 + math.Pow(0.5, theta)

	for i := range n {
		u := rng.Float64()
		uz := u * zetaN
		var k int
		switch {
		case uz < 1.0:
			k = 0
		case uz < halfPowTheta:
			k = 1
		default:
			k = int(float64(spread) * math.Pow(eta*u-eta+1.0, alpha))
		}
		if k >= keySpace {
			k = keySpace - 1
		}
		keys[i] = k
	}
	return keys, nil
}

// Uniform generates n keys drawn uniformly from [0, keySpace).
func Uniform(n, keySpace int, seed uint64) ([]int, error) {
	if keySpace < 1 {
		return nil, fmt.Errorf("workload: key space must be positive, got %d", keySpace)
	}
	rng := rand.New(rand.NewPCG(seed, seed+1))
	keys := make([]int, n)
	for i := range keys {
		keys[i] = rng.IntN(keySpace)
	}
	return keys, nil
}

// Scan generates n keys cycling through [0, keySpace) in order. It defeats
// recency-based eviction once keySpace exceeds the cache size.
func Scan(n, keySpace int) []int {
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i % keySpace
	}
	return keys
}

// Name formats an integer key as an object name.
func Name(key int) string {
	return fmt.Sprintf("key-%06d", key)
}

// Names formats integer keys as object names.
func Names(keys []int) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = Name(k)
	}
	return out
}

func zeta(n uint64, theta float64) float64 {
	sum := 0.0
	for i := uint64(1); i <= n; i++ {
		sum += 1.0 / math.Pow(float64(i), theta)
	}
	return sum
}
