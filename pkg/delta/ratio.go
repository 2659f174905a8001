package delta

// Ratio 分母不大于 0 时返回 0，不会出现除零
func Ratio(numerator, denominator float64) float64 {
	if denominator > 0 {
		return numerator / denominator
	}
	return 0
}

// HitRate hits / (hits + misses)
func HitRate(hits, misses float64) float64 {
	return Ratio(hits, hits+misses)
}

// Percent Ratio * 100
func Percent(numerator, denominator float64) float64 {
	return Ratio(numerator, denominator) * 100
}
