package strategy

import (
	"fmt"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// BollingerBands buys when the close drops below the lower band and sells
// when it rises above the upper band, entering at most one position at a time.
type BollingerBands struct {
	window int
	numStd float64
}

// NewBollingerBands creates a Bollinger Bands strategy. The conventional
// configuration is a 20-bar window with 2 standard deviations.
func NewBollingerBands(window int, numStd float64) (*BollingerBands, error) {
	if err := validateWindow("window", window); err != nil {
		return nil, err
	}

	if numStd <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"standard deviation multiplier must be positive, got %.2f", numStd)
	}

	return &BollingerBands{
		window: window,
		numStd: numStd,
	}, nil
}

func (s *BollingerBands) Name() string {
	return fmt.Sprintf("Bollinger Bands (%d, %.1f)", s.window, s.numStd)
}

func (s *BollingerBands) GenerateSignals(bars []types.MarketData) ([]types.Signal, error) {
	signals := holdSeries(bars)
	if len(bars) < s.window {
		return signals, nil
	}

	prices := closes(bars)
	middle := sma(prices, s.window)
	std := rollingStd(prices, s.window)

	inMarket := false

	for i := s.window; i < len(bars); i++ {
		upper := middle[i] + std[i]*s.numStd
		lower := middle[i] - std[i]*s.numStd

		switch {
		case prices[i] < lower && !inMarket:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = fmt.Sprintf("close %.2f below lower band %.2f", prices[i], lower)
			inMarket = true
		case prices[i] > upper && inMarket:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = fmt.Sprintf("close %.2f above upper band %.2f", prices[i], upper)
			inMarket = false
		}
	}

	return signals, nil
}
