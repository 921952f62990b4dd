package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentileLinearInterpolation(t *testing.T) {
	values := []float64{7, 1, 3, 5}

	assert.Equal(t, 1.0, Percentile(values, 0))
	assert.Equal(t, 7.0, Percentile(values, 100))
	assert.InDelta(t, 2.5, Quantile(values, 0.25), 1e-12)
	assert.InDelta(t, 5.5, Quantile(values, 0.75), 1e-12)
	assert.InDelta(t, 4.0, Median(values), 1e-12)
	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.Equal(t, 0.0, Percentile(values, 101))
}

func TestQuartilesMatchesPercentile(t *testing.T) {
	values := []float64{10, 2, 8, 4, 6, 12, 14}
	q1, q3 := Quartiles(values)

	assert.InDelta(t, Percentile(values, 25), q1, 1e-12)
	assert.InDelta(t, Percentile(values, 75), q3, 1e-12)
	assert.InDelta(t, q3-q1, IQR(values), 1e-12)
}

func TestDetectOutliers(t *testing.T) {
	values := []float64{10, 11, 12, 10, 11, 12, 10, 11, 100}

	outliers := DetectOutliers(values, 1.5)
	assert.Equal(t, []int{8}, outliers)

	lower, upper := OutlierBounds(values, 1.5)
	assert.Less(t, lower, 10.0)
	assert.Greater(t, upper, 12.0)
}

func TestZScores(t *testing.T) {
	z := ZScores([]float64{1, 2, 3}, 2, 1)
	assert.Equal(t, []float64{-1, 0, 1}, z)

	assert.Nil(t, ZScores([]float64{1, 1}, 1, 0))
}

func TestEqualWidthBins(t *testing.T) {
	edges, counts := EqualWidthBins([]float64{0, 1, 2, 3, 4}, 2)
	assert.Equal(t, []float64{0, 2, 4}, edges)
	assert.Equal(t, []int{2, 3}, counts)

	edges, counts = EqualWidthBins([]float64{5, 5, 5}, 4)
	assert.Equal(t, []float64{5, 5}, edges)
	assert.Equal(t, []int{3}, counts)

	edges, counts = EqualWidthBins(nil, 4)
	assert.Nil(t, edges)
	assert.Nil(t, counts)
}

func TestMinMax(t *testing.T) {
	min, max := MinMax([]float64{3, -1, 9, 2})
	assert.Equal(t, -1.0, min)
	assert.Equal(t, 9.0, max)
}
