package strategy

import (
	"fmt"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// MACD signals long while the MACD line sits above its signal line and sell
// while it sits below.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a MACD strategy. The conventional configuration is 12/26/9.
func NewMACD(fastPeriod int, slowPeriod int, signalPeriod int) (*MACD, error) {
	for name, period := range map[string]int{
		"fast period":   fastPeriod,
		"slow period":   slowPeriod,
		"signal period": signalPeriod,
	} {
		if err := validateWindow(name, period); err != nil {
			return nil, err
		}
	}

	if fastPeriod >= slowPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"fast period %d must be smaller than slow period %d", fastPeriod, slowPeriod)
	}

	return &MACD{
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
	}, nil
}

func (s *MACD) Name() string {
	return fmt.Sprintf("MACD (%d/%d/%d)", s.fastPeriod, s.slowPeriod, s.signalPeriod)
}

func (s *MACD) GenerateSignals(bars []types.MarketData) ([]types.Signal, error) {
	signals := holdSeries(bars)

	prices := closes(bars)
	fast := ema(prices, s.fastPeriod)
	slow := ema(prices, s.slowPeriod)

	macdLine := make([]float64, len(bars))
	for i := range macdLine {
		macdLine[i] = fast[i] - slow[i]
	}

	signalLine := ema(macdLine, s.signalPeriod)

	for i := range bars {
		switch {
		case macdLine[i] > signalLine[i]:
			signals[i].Type = types.SignalTypeBuy
		case macdLine[i] < signalLine[i]:
			signals[i].Type = types.SignalTypeSell
		}
	}

	return signals, nil
}
