package strategy

import (
	"fmt"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// SMACrossover buys when the short simple moving average crosses above the
// long one and sells when it crosses back below. It tracks whether it is in
// the market so each crossover fires at most once.
type SMACrossover struct {
	shortWindow int
	longWindow  int
}

// NewSMACrossover creates an SMA crossover strategy. Typical windows are 20
// and 50.
func NewSMACrossover(shortWindow int, longWindow int) (*SMACrossover, error) {
	if err := validateWindow("short window", shortWindow); err != nil {
		return nil, err
	}

	if err := validateWindow("long window", longWindow); err != nil {
		return nil, err
	}

	if shortWindow >= longWindow {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"short window %d must be smaller than long window %d", shortWindow, longWindow)
	}

	return &SMACrossover{
		shortWindow: shortWindow,
		longWindow:  longWindow,
	}, nil
}

func (s *SMACrossover) Name() string {
	return fmt.Sprintf("SMA Crossover (%d/%d)", s.shortWindow, s.longWindow)
}

func (s *SMACrossover) GenerateSignals(bars []types.MarketData) ([]types.Signal, error) {
	signals := holdSeries(bars)
	if len(bars) < s.longWindow {
		return signals, nil
	}

	prices := closes(bars)
	shortMA := sma(prices, s.shortWindow)
	longMA := sma(prices, s.longWindow)

	inMarket := false

	for i := s.longWindow; i < len(bars); i++ {
		switch {
		case shortMA[i] > longMA[i] && !inMarket:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = fmt.Sprintf("short SMA %.2f crossed above long SMA %.2f", shortMA[i], longMA[i])
			inMarket = true
		case shortMA[i] < longMA[i] && inMarket:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = fmt.Sprintf("short SMA %.2f crossed below long SMA %.2f", shortMA[i], longMA[i])
			inMarket = false
		}
	}

	return signals, nil
}
