package strategy

import (
	"fmt"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// RSI buys when the Relative Strength Index drops below the oversold
// threshold and sells when it rises above the overbought threshold.
type RSI struct {
	period     int
	oversold   float64
	overbought float64
}

// NewRSI creates an RSI strategy. The conventional configuration is a
// 14-bar period with 30/70 thresholds.
func NewRSI(period int, oversold float64, overbought float64) (*RSI, error) {
	if err := validateWindow("period", period); err != nil {
		return nil, err
	}

	if oversold >= overbought {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"oversold threshold %.2f must be below overbought threshold %.2f", oversold, overbought)
	}

	return &RSI{
		period:     period,
		oversold:   oversold,
		overbought: overbought,
	}, nil
}

func (s *RSI) Name() string {
	return fmt.Sprintf("RSI (%d)", s.period)
}

func (s *RSI) GenerateSignals(bars []types.MarketData) ([]types.Signal, error) {
	signals := holdSeries(bars)

	values := rsi(closes(bars), s.period)

	for i := range bars {
		switch {
		case values[i] < s.oversold:
			signals[i].Type = types.SignalTypeBuy
			signals[i].Reason = fmt.Sprintf("RSI oversold (%.2f)", values[i])
		case values[i] > s.overbought:
			signals[i].Type = types.SignalTypeSell
			signals[i].Reason = fmt.Sprintf("RSI overbought (%.2f)", values[i])
		}
	}

	return signals, nil
}
