package math

import (
	"math"
	"sort"
)

// Sorted returns a sorted copy of values
func Sorted(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// MinMax returns the smallest and largest of values
func MinMax(values []float64) (min, max float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Median calculates the median of a slice of float64 values
func Median(values []float64) float64 {
	return Quantile(values, 0.5)
}

// Percentile calculates the p-th percentile of a slice of values.
// Between order statistics it interpolates linearly, so the 25th percentile of
// n values sits at rank 0.25*(n-1).
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 || p < 0 || p > 100 {
		return 0
	}
	return percentileSorted(Sorted(values), p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	if p == 0 {
		return sorted[0]
	}
	if p == 100 {
		return sorted[len(sorted)-1]
	}

	index := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// Quantile calculates quantiles (quartiles, quintiles, etc.)
func Quantile(values []float64, q float64) float64 {
	return Percentile(values, q*100)
}

// Quartiles returns the first and third quartiles
func Quartiles(values []float64) (q1, q3 float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sorted := Sorted(values)
	return percentileSorted(sorted, 25), percentileSorted(sorted, 75)
}

// IQR calculates the Interquartile Range (Q3 - Q1)
func IQR(values []float64) float64 {
	q1, q3 := Quartiles(values)
	return q3 - q1
}

// OutlierBounds calculates the Tukey fences [Q1-k*IQR, Q3+k*IQR]
func OutlierBounds(values []float64, k float64) (lower, upper float64) {
	q1, q3 := Quartiles(values)
	iqr := q3 - q1

	lower = q1 - k*iqr
	upper = q3 + k*iqr
	return lower, upper
}

// DetectOutliers returns indices of values outside the Tukey fences
func DetectOutliers(values []float64, k float64) []int {
	lower, upper := OutlierBounds(values, k)

	var outliers []int
	for i, v := range values {
		if v < lower || v > upper {
			outliers = append(outliers, i)
		}
	}

	return outliers
}

// ZScores standardizes values against a known mean and standard deviation.
// A zero or non-finite std yields nil.
func ZScores(values []float64, mean, std float64) []float64 {
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil
	}

	zScores := make([]float64, len(values))
	for i, v := range values {
		zScores[i] = (v - mean) / std
	}
	return zScores
}

// IsFinite reports whether f is neither NaN nor infinite
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// EqualWidthBins counts values into n equal-width bins spanning [min, max].
// The last bin is closed on the right. When min == max a single bin holds everything.
func EqualWidthBins(values []float64, n int) (edges []float64, counts []int) {
	if len(values) == 0 || n < 1 {
		return nil, nil
	}

	min, max := MinMax(values)
	if min == max {
		return []float64{min, max}, []int{len(values)}
	}

	width := (max - min) / float64(n)
	edges = make([]float64, n+1)
	for i := range edges {
		edges[i] = min + float64(i)*width
	}
	edges[n] = max

	counts = make([]int, n)
	for _, v := range values {
		idx := int((v - min) / width)
		if idx >= n {
			idx = n - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	return edges, counts
}
