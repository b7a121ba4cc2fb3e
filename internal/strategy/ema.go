package strategy

import (
	"fmt"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// EMA signals long whenever the fast exponential moving average sits above
// the slow one and sell whenever it sits below. Unlike SMACrossover it emits
// the state on every bar rather than only on transitions; the engine's
// open-position guardrails absorb the repeats.
type EMA struct {
	fastWindow int
	slowWindow int
}

// NewEMA creates an EMA strategy. Typical windows are 12 and 26.
func NewEMA(fastWindow int, slowWindow int) (*EMA, error) {
	if err := validateWindow("fast window", fastWindow); err != nil {
		return nil, err
	}

	if err := validateWindow("slow window", slowWindow); err != nil {
		return nil, err
	}

	if fastWindow >= slowWindow {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"fast window %d must be smaller than slow window %d", fastWindow, slowWindow)
	}

	return &EMA{
		fastWindow: fastWindow,
		slowWindow: slowWindow,
	}, nil
}

func (s *EMA) Name() string {
	return fmt.Sprintf("EMA (%d/%d)", s.fastWindow, s.slowWindow)
}

func (s *EMA) GenerateSignals(bars []types.MarketData) ([]types.Signal, error) {
	signals := holdSeries(bars)

	prices := closes(bars)
	fast := ema(prices, s.fastWindow)
	slow := ema(prices, s.slowWindow)

	for i := range bars {
		switch {
		case fast[i] > slow[i]:
			signals[i].Type = types.SignalTypeBuy
		case fast[i] < slow[i]:
			signals[i].Type = types.SignalTypeSell
		}
	}

	return signals, nil
}
