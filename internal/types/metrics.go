package types

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EquityPoint is one sample of the equity curve: total portfolio value
// (cash plus mark-to-market of open positions) at a bar timestamp.
type EquityPoint struct {
	Time   time.Time
	Equity decimal.Decimal
}

// PerformanceMetrics is the aggregate result of one backtest run.
type PerformanceMetrics struct {
	// TotalTrades is the number of closed positions.
	TotalTrades int
	// WinningTrades is the number of closed positions with positive realized P&L.
	WinningTrades int
	// LosingTrades is the number of closed positions without positive realized P&L.
	LosingTrades int
	// WinRate is WinningTrades / TotalTrades.
	WinRate decimal.Decimal
	// AvgWin is the mean realized P&L over winning trades, 0 when there are none.
	AvgWin decimal.Decimal
	// AvgLoss is the mean realized P&L over losing trades, 0 when there are none.
	AvgLoss decimal.Decimal
	// MaxDrawdown is the largest percentage decline from the expanding peak equity.
	MaxDrawdown decimal.Decimal
	// SharpeRatio is the excess annual return over the risk-free rate per unit of volatility.
	SharpeRatio decimal.Decimal
	// TotalReturn is the percentage change from first to last equity sample.
	TotalReturn decimal.Decimal
	// AnnualReturn is the compound annual growth rate as a percentage.
	AnnualReturn decimal.Decimal
	// Volatility is the annualized standard deviation of daily returns as a percentage.
	Volatility decimal.Decimal
	// ClosedPositions is the list of positions the metrics were computed from.
	ClosedPositions []Position
}

// EmptyMetrics returns the all-zero sentinel used when fewer than 2 equity
// samples exist or no position ever closed.
func EmptyMetrics() PerformanceMetrics {
	return PerformanceMetrics{
		TotalTrades:     0,
		WinningTrades:   0,
		LosingTrades:    0,
		WinRate:         decimal.Zero,
		AvgWin:          decimal.Zero,
		AvgLoss:         decimal.Zero,
		MaxDrawdown:     decimal.Zero,
		SharpeRatio:     decimal.Zero,
		TotalReturn:     decimal.Zero,
		AnnualReturn:    decimal.Zero,
		Volatility:      decimal.Zero,
		ClosedPositions: []Position{},
	}
}

// metricsDocument is the YAML representation of PerformanceMetrics.
// Decimal values are rendered as strings to keep them exact.
type metricsDocument struct {
	TotalTrades   int              `yaml:"total_trades"`
	WinningTrades int              `yaml:"winning_trades"`
	LosingTrades  int              `yaml:"losing_trades"`
	WinRate       string           `yaml:"win_rate"`
	AvgWin        string           `yaml:"avg_win"`
	AvgLoss       string           `yaml:"avg_loss"`
	MaxDrawdown   string           `yaml:"max_drawdown_pct"`
	SharpeRatio   string           `yaml:"sharpe_ratio"`
	TotalReturn   string           `yaml:"total_return_pct"`
	AnnualReturn  string           `yaml:"annual_return_pct"`
	Volatility    string           `yaml:"volatility_pct"`
	Trades        []tradeDocument  `yaml:"trades"`
}

type tradeDocument struct {
	Symbol     string `yaml:"symbol"`
	Side       string `yaml:"side"`
	EntryPrice string `yaml:"entry_price"`
	EntryTime  string `yaml:"entry_time"`
	ExitPrice  string `yaml:"exit_price"`
	ExitTime   string `yaml:"exit_time"`
	Shares     string `yaml:"shares"`
	Leverage   string `yaml:"leverage"`
	ProfitLoss string `yaml:"profit_loss"`
	Liquidated bool   `yaml:"liquidated"`
}

// WritePerformanceMetrics writes the metrics of a run to a YAML file.
func WritePerformanceMetrics(path string, metrics PerformanceMetrics) error {
	doc := metricsDocument{
		TotalTrades:   metrics.TotalTrades,
		WinningTrades: metrics.WinningTrades,
		LosingTrades:  metrics.LosingTrades,
		WinRate:       metrics.WinRate.String(),
		AvgWin:        metrics.AvgWin.String(),
		AvgLoss:       metrics.AvgLoss.String(),
		MaxDrawdown:   metrics.MaxDrawdown.String(),
		SharpeRatio:   metrics.SharpeRatio.String(),
		TotalReturn:   metrics.TotalReturn.String(),
		AnnualReturn:  metrics.AnnualReturn.String(),
		Volatility:    metrics.Volatility.String(),
		Trades:        make([]tradeDocument, 0, len(metrics.ClosedPositions)),
	}

	for _, position := range metrics.ClosedPositions {
		trade := tradeDocument{
			Symbol:     position.Symbol,
			Side:       string(position.Side),
			EntryPrice: position.EntryPrice.String(),
			EntryTime:  position.EntryTime.Format(time.RFC3339),
			ExitPrice:  "",
			ExitTime:   "",
			Shares:     position.Shares.String(),
			Leverage:   position.Leverage.String(),
			ProfitLoss: "",
			Liquidated: position.Liquidated,
		}
		if position.ExitPrice.IsSome() {
			trade.ExitPrice = position.ExitPrice.Unwrap().String()
		}

		if position.ExitTime.IsSome() {
			trade.ExitTime = position.ExitTime.Unwrap().Format(time.RFC3339)
		}

		if pnl := position.ProfitLoss(); pnl.IsSome() {
			trade.ProfitLoss = pnl.Unwrap().String()
		}

		doc.Trades = append(doc.Trades, trade)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal performance metrics to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write performance metrics to file: %w", err)
	}

	return nil
}
