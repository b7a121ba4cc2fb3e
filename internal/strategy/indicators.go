package strategy

import (
	"math"

	"github.com/rxtech-lab/tradepruf/internal/types"
)

// Indicator helpers shared by the strategies in this package. All of them
// return a series aligned with the input; entries inside the warmup window
// are NaN, which makes every comparison against them false.

func closes(bars []types.MarketData) []float64 {
	values := make([]float64, len(bars))
	for i, bar := range bars {
		values[i] = bar.Close
	}

	return values
}

// sma is the simple moving average over the trailing window.
func sma(values []float64, window int) []float64 {
	result := nanSeries(len(values))

	sum := 0.0

	for i, value := range values {
		sum += value
		if i >= window {
			sum -= values[i-window]
		}

		if i >= window-1 {
			result[i] = sum / float64(window)
		}
	}

	return result
}

// ema is the exponential moving average with smoothing 2/(span+1), seeded
// from the first value.
func ema(values []float64, span int) []float64 {
	result := nanSeries(len(values))
	if len(values) == 0 {
		return result
	}

	alpha := 2.0 / float64(span+1)
	result[0] = values[0]

	for i := 1; i < len(values); i++ {
		result[i] = alpha*values[i] + (1-alpha)*result[i-1]
	}

	return result
}

// rsi is the Relative Strength Index over the trailing period, using simple
// moving averages of gains and losses.
func rsi(values []float64, period int) []float64 {
	result := nanSeries(len(values))
	if len(values) <= period {
		return result
	}

	gains := make([]float64, len(values))
	losses := make([]float64, len(values))

	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain := sma(gains[1:], period)
	avgLoss := sma(losses[1:], period)

	for i := period; i < len(values); i++ {
		gain := avgGain[i-1]
		loss := avgLoss[i-1]

		if loss == 0 {
			// all-gain window: RSI saturates at 100
			result[i] = 100

			continue
		}

		rs := gain / loss
		result[i] = 100 - 100/(1+rs)
	}

	return result
}

// atr is the average true range: the SMA of the true range over the period.
func atr(bars []types.MarketData, period int) []float64 {
	trueRanges := make([]float64, len(bars))

	for i, bar := range bars {
		highLow := bar.High - bar.Low
		if i == 0 {
			trueRanges[i] = highLow

			continue
		}

		previousClose := bars[i-1].Close
		highClose := math.Abs(bar.High - previousClose)
		lowClose := math.Abs(bar.Low - previousClose)
		trueRanges[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	return sma(trueRanges, period)
}

// rollingStd is the sample standard deviation over the trailing window.
func rollingStd(values []float64, window int) []float64 {
	result := nanSeries(len(values))
	if window < 2 {
		return result
	}

	for i := window - 1; i < len(values); i++ {
		mean := 0.0
		for j := i - window + 1; j <= i; j++ {
			mean += values[j]
		}

		mean /= float64(window)

		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			diff := values[j] - mean
			variance += diff * diff
		}

		result[i] = math.Sqrt(variance / float64(window-1))
	}

	return result
}

// pctChange is the fractional change between consecutive values. The first
// entry is NaN.
func pctChange(values []float64) []float64 {
	result := nanSeries(len(values))

	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}

		result[i] = (values[i] - values[i-1]) / values[i-1]
	}

	return result
}

func nanSeries(length int) []float64 {
	series := make([]float64, length)
	for i := range series {
		series[i] = math.NaN()
	}

	return series
}
