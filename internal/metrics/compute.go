package metrics

import (
	"math"
	"sort"
)

// computeMean calculates arithmetic mean. 0 for empty input.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computePopulationStddev uses the n denominator.
func computePopulationStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	// Linear interpolation
	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMedian returns the median without modifying values.
func computeMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return computePercentile(sorted, 0.50)
}

// computeSkew is the bias-corrected sample skewness (adjusted
// Fisher-Pearson). NaN below 3 samples, 0 for constant input.
func computeSkew(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 3 {
		return math.NaN()
	}
	mean := computeMean(values)
	var m2, m3 float64
	for _, v := range values {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return 0
	}
	return math.Sqrt(n*(n-1)) / (n - 2) * m3 / math.Pow(m2, 1.5)
}

// computeKurtosis is the bias-corrected excess kurtosis.
// NaN below 4 samples, 0 for constant input.
func computeKurtosis(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 4 {
		return math.NaN()
	}
	mean := computeMean(values)
	var s2, s4 float64
	for _, v := range values {
		d := v - mean
		s2 += d * d
		s4 += d * d * d * d
	}
	if s2 == 0 {
		return 0
	}
	num := n * (n + 1) * (n - 1) * s4
	den := (n - 2) * (n - 3) * s2 * s2
	adj := 3 * (n - 1) * (n - 1) / ((n - 2) * (n - 3))
	return num/den - adj
}

// computeMaxConsecutive finds the longest run of values matching pred.
// Values must be in chronological order.
func computeMaxConsecutive(values []float64, pred func(float64) bool) int {
	maxStreak := 0
	currentStreak := 0

	for _, v := range values {
		if pred(v) {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
