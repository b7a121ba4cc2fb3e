package strategy

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// FuturesConfig holds the tunable parameters of the Futures strategy.
// DefaultFuturesConfig returns the conventional values.
type FuturesConfig struct {
	VolatilityWindow int
	ATRPeriod        int
	ATRMultiplier    float64
	RSIPeriod        int
	RSIOversold      float64
	RSIOverbought    float64
	TrendShortWindow int
	TrendLongWindow  int
	MaxLeverage      float64
	ProfitRatio      float64
}

// DefaultFuturesConfig returns the standard Futures strategy configuration.
func DefaultFuturesConfig() FuturesConfig {
	return FuturesConfig{
		VolatilityWindow: 20,
		ATRPeriod:        14,
		ATRMultiplier:    2.0,
		RSIPeriod:        14,
		RSIOversold:      30,
		RSIOverbought:    70,
		TrendShortWindow: 10,
		TrendLongWindow:  50,
		MaxLeverage:      5.0,
		ProfitRatio:      2.0,
	}
}

// Futures combines RSI, trend direction and volatility filters to trade
// leveraged positions in both directions. Every entry carries a stop loss and
// a take profit derived from the current average true range, and the entry
// signal requests the configured maximum leverage.
type Futures struct {
	config FuturesConfig
}

// NewFutures creates a Futures strategy from the given configuration.
func NewFutures(config FuturesConfig) (*Futures, error) {
	for name, window := range map[string]int{
		"volatility window":  config.VolatilityWindow,
		"ATR period":         config.ATRPeriod,
		"RSI period":         config.RSIPeriod,
		"trend short window": config.TrendShortWindow,
		"trend long window":  config.TrendLongWindow,
	} {
		if err := validateWindow(name, window); err != nil {
			return nil, err
		}
	}

	if config.MaxLeverage < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"max leverage must be at least 1, got %.2f", config.MaxLeverage)
	}

	if config.ProfitRatio <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"profit ratio must be positive, got %.2f", config.ProfitRatio)
	}

	return &Futures{config: config}, nil
}

func (s *Futures) Name() string {
	return "Futures"
}

func (s *Futures) GenerateSignals(bars []types.MarketData) ([]types.Signal, error) {
	signals := holdSeries(bars)

	warmup := max(s.config.VolatilityWindow, s.config.ATRPeriod, s.config.RSIPeriod)
	if len(bars) < warmup {
		return signals, nil
	}

	prices := closes(bars)
	averageRange := atr(bars, s.config.ATRPeriod)
	volatility := rollingStd(pctChange(prices), s.config.VolatilityWindow)
	averageVolatility := sma(volatility, s.config.VolatilityWindow)
	rsiValues := rsi(prices, s.config.RSIPeriod)
	trend := s.trend(prices)

	inMarket := false

	var stopLoss, takeProfit float64

	for i := warmup; i < len(bars); i++ {
		price := prices[i]

		if !inMarket {
			calmMarket := volatility[i] < averageVolatility[i]
			longEntry := rsiValues[i] < s.config.RSIOversold && trend[i] > 0 && calmMarket
			shortEntry := rsiValues[i] > s.config.RSIOverbought && trend[i] < 0 && calmMarket

			if !longEntry && !shortEntry {
				continue
			}

			if math.IsNaN(averageRange[i]) {
				continue
			}

			stopDistance := averageRange[i] * s.config.ATRMultiplier

			side := types.PositionSideLong
			reason := fmt.Sprintf("RSI %.2f oversold in uptrend", rsiValues[i])
			stopLoss = price - stopDistance
			takeProfit = price + stopDistance*s.config.ProfitRatio

			if shortEntry {
				side = types.PositionSideShort
				reason = fmt.Sprintf("RSI %.2f overbought in downtrend", rsiValues[i])
				stopLoss = price + stopDistance
				takeProfit = price - stopDistance*s.config.ProfitRatio
			}

			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = reason
			signals[i].Side = optional.Some(side)
			signals[i].Leverage = optional.Some(decimal.NewFromFloat(s.config.MaxLeverage))
			signals[i].StopLoss = optional.Some(decimal.NewFromFloat(stopLoss))
			signals[i].TakeProfit = optional.Some(decimal.NewFromFloat(takeProfit))
			inMarket = true

			continue
		}

		// exits: the engine enforces the stop and target intrabar as well, this
		// close-based check releases the slot for the next entry
		exit := price <= math.Min(stopLoss, takeProfit) ||
			price >= math.Max(stopLoss, takeProfit) ||
			(rsiValues[i] > s.config.RSIOverbought && trend[i] < 0) ||
			(rsiValues[i] < s.config.RSIOversold && trend[i] > 0)

		if exit {
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = "stop, target or momentum reversal reached"
			inMarket = false
		}
	}

	return signals, nil
}

// trend is the fast/slow EMA difference normalized by the slow EMA, positive
// in uptrends and negative in downtrends.
func (s *Futures) trend(prices []float64) []float64 {
	fast := ema(prices, s.config.TrendShortWindow)
	slow := ema(prices, s.config.TrendLongWindow)

	result := nanSeries(len(prices))

	for i := range prices {
		if slow[i] == 0 || math.IsNaN(slow[i]) {
			continue
		}

		result[i] = (fast[i] - slow[i]) / slow[i]
	}

	return result
}
