package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDistribution(t *testing.T) {
	dist := NewDistribution(map[string]int{"a": 3, "b": 1})

	assert.InDelta(t, 0.75, dist["a"], 1e-12)
	assert.InDelta(t, 0.25, dist["b"], 1e-12)
	assert.Equal(t, []string{"a", "b"}, dist.Keys())

	assert.Empty(t, NewDistribution(map[string]int{"a": 0}))
}

func TestTotalVariationDistance(t *testing.T) {
	tests := []struct {
		name     string
		p, q     Distribution
		expected float64
	}{
		{
			name:     "identical",
			p:        Distribution{"a": 0.5, "b": 0.5},
			q:        Distribution{"a": 0.5, "b": 0.5},
			expected: 0,
		},
		{
			name:     "disjoint",
			p:        Distribution{"a": 1},
			q:        Distribution{"b": 1},
			expected: 1,
		},
		{
			name:     "partial overlap",
			p:        Distribution{"a": 0.6, "b": 0.4},
			q:        Distribution{"a": 0.4, "b": 0.4, "c": 0.2},
			expected: 0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, TotalVariationDistance(tt.p, tt.q), 1e-12)
			assert.InDelta(t, tt.expected, TotalVariationDistance(tt.q, tt.p), 1e-12)
		})
	}
}
