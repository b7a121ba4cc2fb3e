// Package metrics computes aggregate performance statistics from the closed
// positions and the equity curve of a finished backtest run.
package metrics

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tradepruf/internal/types"
)

const (
	// riskFreeRate is the fixed annual risk-free rate used for the Sharpe ratio.
	riskFreeRate = 0.02
	// tradingDaysPerYear is the factor used to annualize daily volatility.
	tradingDaysPerYear = 252
	// calendarDaysPerYear is the factor used to annualize returns.
	calendarDaysPerYear = 365
)

var hundred = decimal.NewFromInt(100)

// Calculate derives a PerformanceMetrics snapshot from closed positions and
// the equity curve of one run. It is a pure function: inputs are never
// mutated and identical inputs always produce identical output.
//
// The all-zero sentinel is returned when no position ever closed or fewer
// than 2 equity samples exist. Monetary quantities stay in decimal
// arithmetic; standard deviation and the compound-growth exponent go through
// float64 and are converted back.
func Calculate(positions []types.Position, equityCurve []types.EquityPoint) types.PerformanceMetrics {
	closed := make([]types.Position, 0, len(positions))

	for _, position := range positions {
		if !position.IsOpen() {
			closed = append(closed, position)
		}
	}

	if len(closed) == 0 || len(equityCurve) < 2 {
		return types.EmptyMetrics()
	}

	firstEquity := equityCurve[0].Equity
	lastEquity := equityCurve[len(equityCurve)-1].Equity

	if firstEquity.LessThanOrEqual(decimal.Zero) {
		// a run that starts at or below zero equity has no meaningful returns
		return types.EmptyMetrics()
	}

	totalTrades := len(closed)
	winning := 0

	var winningSum, losingSum decimal.Decimal

	losingCount := 0

	for _, position := range closed {
		pnl := position.ProfitLoss().Unwrap()
		if pnl.GreaterThan(decimal.Zero) {
			winning++

			winningSum = winningSum.Add(pnl)
		} else if pnl.LessThan(decimal.Zero) {
			losingCount++

			losingSum = losingSum.Add(pnl)
		}
	}

	winRate := decimal.NewFromInt(int64(winning)).Div(decimal.NewFromInt(int64(totalTrades)))

	avgWin := decimal.Zero
	if winning > 0 {
		avgWin = winningSum.Div(decimal.NewFromInt(int64(winning)))
	}

	avgLoss := decimal.Zero
	if losingCount > 0 {
		avgLoss = losingSum.Div(decimal.NewFromInt(int64(losingCount)))
	}

	totalReturn := lastEquity.Sub(firstEquity).Div(firstEquity).Mul(hundred)

	annualReturn := annualizedReturn(firstEquity, lastEquity, equityCurve)
	volatility := annualizedVolatility(equityCurve)

	sharpe := decimal.Zero
	if !volatility.IsZero() {
		excess := annualReturn.Div(hundred).Sub(decimal.NewFromFloat(riskFreeRate))
		sharpe = excess.Div(volatility.Div(hundred))
	}

	return types.PerformanceMetrics{
		TotalTrades:     totalTrades,
		WinningTrades:   winning,
		LosingTrades:    totalTrades - winning,
		WinRate:         winRate,
		AvgWin:          avgWin,
		AvgLoss:         avgLoss,
		MaxDrawdown:     MaxDrawdown(equityCurve),
		SharpeRatio:     sharpe,
		TotalReturn:     totalReturn,
		AnnualReturn:    annualReturn,
		Volatility:      volatility,
		ClosedPositions: closed,
	}
}

// MaxDrawdown returns the largest percentage decline from the expanding peak
// of the equity curve. The peak is the running maximum observed up to each
// sample, not the global maximum of the whole curve.
func MaxDrawdown(equityCurve []types.EquityPoint) decimal.Decimal {
	maxDrawdown := decimal.Zero
	peak := decimal.Zero

	for _, point := range equityCurve {
		if point.Equity.GreaterThan(peak) {
			peak = point.Equity
		}

		if peak.LessThanOrEqual(decimal.Zero) {
			continue
		}

		drawdown := peak.Sub(point.Equity).Div(peak).Mul(hundred)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown
}

// annualizedReturn applies the compound-growth formula
// (last/first)^(365/days) - 1, expressed as a percentage.
func annualizedReturn(first decimal.Decimal, last decimal.Decimal, equityCurve []types.EquityPoint) decimal.Decimal {
	days := int(equityCurve[len(equityCurve)-1].Time.Sub(equityCurve[0].Time).Hours() / 24)
	factor := float64(calendarDaysPerYear) / float64(max(days, 1))

	ratio, _ := last.Div(first).Float64()
	if ratio <= 0 {
		return decimal.Zero
	}

	annual := (math.Pow(ratio, factor) - 1) * 100
	if math.IsNaN(annual) || math.IsInf(annual, 0) {
		return decimal.Zero
	}

	return decimal.NewFromFloat(annual)
}

// annualizedVolatility is the sample standard deviation of per-bar fractional
// equity changes, scaled by sqrt(252), as a percentage.
func annualizedVolatility(equityCurve []types.EquityPoint) decimal.Decimal {
	returns := dailyReturns(equityCurve)
	if len(returns) < 2 {
		return decimal.Zero
	}

	std := stdDev(returns)
	if math.IsNaN(std) {
		return decimal.Zero
	}

	return decimal.NewFromFloat(std * math.Sqrt(tradingDaysPerYear) * 100)
}

// dailyReturns computes per-bar fractional equity changes. Samples following
// a zero equity value are skipped rather than dividing by zero.
func dailyReturns(equityCurve []types.EquityPoint) []float64 {
	returns := make([]float64, 0, len(equityCurve)-1)

	for i := 1; i < len(equityCurve); i++ {
		previous := equityCurve[i-1].Equity
		if previous.IsZero() {
			continue
		}

		change, _ := equityCurve[i].Equity.Sub(previous).Div(previous).Float64()
		returns = append(returns, change)
	}

	return returns
}

// stdDev computes the sample standard deviation (n-1 denominator).
func stdDev(values []float64) float64 {
	mean := 0.0
	for _, value := range values {
		mean += value
	}

	mean /= float64(len(values))

	variance := 0.0
	for _, value := range values {
		diff := value - mean
		variance += diff * diff
	}

	variance /= float64(len(values) - 1)

	return math.Sqrt(variance)
}
