package services

// ReliabilityAlpha computes Cronbach's alpha for a [respondents][items] matrix using
// population variances, so perfectly correlated items give 1. Ragged matrices, fewer
// than two items or zero total variance give 0; the result is clamped to [0, 1].
func ReliabilityAlpha(matrix [][]float64) float64 {
	n := len(matrix)
	if n == 0 {
		return 0
	}
	k := len(matrix[0])
	if k < 2 {
		return 0
	}
	sum := make([]float64, k)
	sumSq := make([]float64, k)
	var totSum, totSumSq float64
	for _, row := range matrix {
		if len(row) != k {
			return 0
		}
		total := 0.0
		for j, v := range row {
			sum[j] += v
			sumSq[j] += v * v
			total += v
		}
		totSum += total
		totSumSq += total * total
	}
	nf := float64(n)
	variance := func(s, sq float64) float64 {
		m := s / nf
		return sq/nf - m*m
	}
	totalVar := variance(totSum, totSumSq)
	if totalVar <= 1e-12 {
		return 0
	}
	itemVar := 0.0
	for j := range sum {
		itemVar += variance(sum[j], sumSq[j])
	}
	kf := float64(k)
	alpha := kf / (kf - 1) * (1 - itemVar/totalVar)
	switch {
	case alpha < 0:
		return 0
	case alpha > 1:
		return 1
	}
	return alpha
}
