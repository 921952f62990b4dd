package metrics

import (
	"math"
	"sort"
)

// Distribution maps a category to its probability mass
type Distribution map[string]float64

// NewDistribution normalizes raw counts into a distribution.
// An empty or all-zero count table yields an empty distribution.
func NewDistribution(counts map[string]int) Distribution {
	total := 0
	for _, c := range counts {
		total += c
	}

	dist := make(Distribution, len(counts))
	if total == 0 {
		return dist
	}
	for k, c := range counts {
		dist[k] = float64(c) / float64(total)
	}
	return dist
}

// Keys returns the categories in sorted order
func (d Distribution) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TotalVariationDistance returns half the L1 distance between p and q over the
// union of their categories. The result lies in [0, 1] for proper distributions.
func TotalVariationDistance(p, q Distribution) float64 {
	union := make(map[string]struct{}, len(p)+len(q))
	for k := range p {
		union[k] = struct{}{}
	}
	for k := range q {
		union[k] = struct{}{}
	}

	keys := make([]string, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	// Fixed summation order keeps the result bit-for-bit reproducible.
	sort.Strings(keys)

	sum := 0.0
	for _, k := range keys {
		sum += math.Abs(p[k] - q[k])
	}
	return math.Min(1, sum/2)
}
