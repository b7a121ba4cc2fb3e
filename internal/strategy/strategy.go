// Package strategy contains signal-generating trading strategies. A strategy
// looks at a full bar series up front and emits one signal per bar; it never
// sees the portfolio state, so the same strategy output can be replayed
// against different engine configurations.
package strategy

import (
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// Strategy produces one signal per input bar. Implementations must return a
// slice of exactly len(bars) signals, aligned by index, and must not mutate
// the input.
type Strategy interface {
	// Name returns a human-readable strategy name for journals and results.
	Name() string
	// GenerateSignals computes the full signal series for the bar series.
	GenerateSignals(bars []types.MarketData) ([]types.Signal, error)
}

// SignalFunc adapts a plain function to the Strategy interface.
type SignalFunc func(bars []types.MarketData) ([]types.Signal, error)

type funcStrategy struct {
	name string
	fn   SignalFunc
}

// NewSignalFunc wraps fn as a named Strategy.
func NewSignalFunc(name string, fn SignalFunc) Strategy {
	return &funcStrategy{
		name: name,
		fn:   fn,
	}
}

func (s *funcStrategy) Name() string {
	return s.name
}

func (s *funcStrategy) GenerateSignals(bars []types.MarketData) ([]types.Signal, error) {
	return s.fn(bars)
}

// holdSeries returns an all-HOLD signal series aligned with bars. Strategies
// start from this and flip individual entries to BUY or SELL.
func holdSeries(bars []types.MarketData) []types.Signal {
	signals := make([]types.Signal, len(bars))
	for i, bar := range bars {
		signals[i] = types.Signal{
			Time:   bar.Time,
			Type:   types.SignalTypeHold,
			Symbol: bar.Symbol,
		}
	}

	return signals
}

func validateWindow(name string, window int) error {
	if window <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "%s must be positive, got %d", name, window)
	}

	return nil
}
