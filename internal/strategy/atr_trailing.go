package strategy

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// ATRTrailingStop follows the price with a stop placed a multiple of the
// average true range below the close. It buys when the close moves above the
// stop and sells when the close falls back below it. While long, the stop
// only ratchets upward.
type ATRTrailingStop struct {
	period     int
	multiplier float64
}

// NewATRTrailingStop creates an ATR trailing stop strategy. The conventional
// configuration is a 14-bar period with a 2x multiplier.
func NewATRTrailingStop(period int, multiplier float64) (*ATRTrailingStop, error) {
	if err := validateWindow("period", period); err != nil {
		return nil, err
	}

	if multiplier <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"multiplier must be positive, got %.2f", multiplier)
	}

	return &ATRTrailingStop{
		period:     period,
		multiplier: multiplier,
	}, nil
}

func (s *ATRTrailingStop) Name() string {
	return fmt.Sprintf("ATR Trailing Stop (%d, %.1f)", s.period, s.multiplier)
}

func (s *ATRTrailingStop) GenerateSignals(bars []types.MarketData) ([]types.Signal, error) {
	signals := holdSeries(bars)
	if len(bars) < s.period {
		return signals, nil
	}

	prices := closes(bars)
	averageRange := atr(bars, s.period)

	inMarket := false
	stop := prices[0]

	for i := 1; i < len(bars); i++ {
		if math.IsNaN(averageRange[i]) {
			continue
		}

		candidate := prices[i] - s.multiplier*averageRange[i]
		if inMarket {
			stop = math.Max(stop, candidate)
		} else {
			stop = candidate
		}

		switch {
		case prices[i] > stop && !inMarket:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = fmt.Sprintf("close %.2f above trailing stop %.2f", prices[i], stop)
			inMarket = true
		case prices[i] < stop && inMarket:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = fmt.Sprintf("close %.2f below trailing stop %.2f", prices[i], stop)
			inMarket = false
		}
	}

	return signals, nil
}
