package indicator

// SMA returns the simple moving average series of prices.
// The result has len(prices)-period+1 values, or none when the window never fills.
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	out := make([]float64, 0, len(prices)-period+1)
	var sum float64
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// EMA returns the exponential moving average series seeded with the first SMA.
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}

	k := 2.0 / float64(period+1)
	seed := SMA(prices[:period], period)[0]

	out := make([]float64, 0, len(prices)-period+1)
	out = append(out, seed)
	ema := seed
	for _, p := range prices[period:] {
		ema += (p - ema) * k
		out = append(out, ema)
	}
	return out
}

// TrailingMean averages the last n prices. ok is false when fewer than n are available.
func TrailingMean(prices []float64, n int) (mean float64, ok bool) {
	if n <= 0 || len(prices) < n {
		return 0, false
	}
	var sum float64
	for _, p := range prices[len(prices)-n:] {
		sum += p
	}
	return sum / float64(n), true
}
