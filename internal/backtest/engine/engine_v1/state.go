package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tradepruf/internal/journal"
	"github.com/rxtech-lab/tradepruf/internal/types"
)

// SkipReason explains why an open attempt was rejected. Skips are expected
// during a run and never abort it.
type SkipReason string

const (
	SkipNone               SkipReason = ""
	SkipMaxPositions       SkipReason = "max positions reached"
	SkipInvalidPrice       SkipReason = "invalid price"
	SkipInsufficientMargin SkipReason = "insufficient margin"
)

// OpenResult reports the outcome of one open attempt.
type OpenResult struct {
	Opened   bool
	Reason   SkipReason
	Position types.Position
}

// CloseResult reports one closed position and its realized profit.
type CloseResult struct {
	Position    types.Position
	RealizedPnL decimal.Decimal
}

// runState is the mutable bookkeeping of a single run: cash, the open and
// closed position lists and the equity curve. Every run gets a fresh value,
// so successive runs on one engine never share state.
type runState struct {
	config  BacktestEngineV1Config
	cash    decimal.Decimal
	open    []types.Position
	closed  []types.Position
	equity  []types.EquityPoint
	journal *journal.Writer
}

func newRunState(config BacktestEngineV1Config, writer *journal.Writer) *runState {
	if writer == nil {
		writer = journal.Discard()
	}

	return &runState{
		config:  config,
		cash:    config.InitialCapital,
		open:    nil,
		closed:  nil,
		equity:  nil,
		journal: writer,
	}
}

// openPosition attempts to open one position from a BUY signal at the bar's
// closing price. The guardrails are checked in a fixed order: position slots
// first, then price validity, then margin.
func (s *runState) openPosition(signal types.Signal, bar types.MarketData) OpenResult {
	if len(s.open) >= s.config.MaxPositions {
		s.journal.Writef("Skip opening position: max positions (%d) reached", s.config.MaxPositions)

		return OpenResult{Opened: false, Reason: SkipMaxPositions, Position: types.Position{}}
	}

	price := decimal.NewFromFloat(bar.Close)
	if price.LessThanOrEqual(decimal.Zero) {
		s.journal.Writef("Skip opening position: invalid price %s", price)

		return OpenResult{Opened: false, Reason: SkipInvalidPrice, Position: types.Position{}}
	}

	leverage := s.leverageFor(signal)
	side := types.PositionSideLong

	if signal.Side.IsSome() {
		side = signal.Side.Unwrap()
	}

	// commit a fraction of current cash, scaled by leverage, rounded to
	// 3 decimal places of shares
	shares := s.cash.Mul(s.config.PositionSizeFraction).Mul(leverage).Div(price).Round(3)
	margin := price.Mul(shares).Div(leverage)

	if shares.LessThanOrEqual(decimal.Zero) || margin.GreaterThan(s.cash) {
		s.journal.Write("Skip opening position: insufficient margin")

		return OpenResult{Opened: false, Reason: SkipInsufficientMargin, Position: types.Position{}}
	}

	position := types.Position{
		ID:               uuid.NewString(),
		Symbol:           bar.Symbol,
		Side:             side,
		EntryPrice:       price,
		EntryTime:        bar.Time,
		Shares:           shares,
		Leverage:         leverage,
		SpreadFee:        price.Mul(s.config.SpreadFeeRate),
		LiquidationPrice: liquidationPrice(side, price, margin, shares, leverage, s.config.MarginCallRatio),
		StopLoss:         signal.StopLoss,
		TakeProfit:       signal.TakeProfit,
		ExitPrice:        optional.None[decimal.Decimal](),
		ExitTime:         optional.None[time.Time](),
		Liquidated:       false,
	}

	s.cash = s.cash.Sub(margin)
	s.open = append(s.open, position)

	s.journal.Trade("BUY", position.Symbol, shares.InexactFloat64(), bar.Close, margin.InexactFloat64())
	s.journal.Writef("Capital after open: $%s (open positions: %d)", s.cash.StringFixed(2), len(s.open))

	return OpenResult{Opened: true, Reason: SkipNone, Position: position}
}

// leverageFor clamps the signal's requested leverage into the configured
// bounds, defaulting to the maximum.
func (s *runState) leverageFor(signal types.Signal) decimal.Decimal {
	leverage := s.config.MaxLeverage
	if signal.Leverage.IsSome() {
		leverage = signal.Leverage.Unwrap()
	}

	if leverage.GreaterThan(s.config.MaxLeverage) {
		leverage = s.config.MaxLeverage
	}

	if leverage.LessThan(s.config.MinLeverage) {
		leverage = s.config.MinLeverage
	}

	return leverage
}

// closeAt closes the open position at index against the given fill price.
// The posted margin plus the realized profit flow back into cash.
func (s *runState) closeAt(index int, price decimal.Decimal, timestamp time.Time, liquidated bool) CloseResult {
	position := s.open[index]
	position.ExitPrice = optional.Some(price)
	position.ExitTime = optional.Some(timestamp)
	position.Liquidated = liquidated

	pnl := position.ProfitLoss().Unwrap()
	s.cash = s.cash.Add(position.RequiredMargin()).Add(pnl)

	s.open = append(s.open[:index], s.open[index+1:]...)
	s.closed = append(s.closed, position)

	action := "SELL"
	if liquidated {
		action = "LIQUIDATE"
	}

	s.journal.Trade(action, position.Symbol, position.Shares.InexactFloat64(), price.InexactFloat64(), pnl.InexactFloat64())
	s.journal.Writef("Capital after close: $%s", s.cash.StringFixed(2))

	return CloseResult{Position: position, RealizedPnL: pnl}
}

// closeSymbol closes every open position of the symbol at the given price.
func (s *runState) closeSymbol(symbol string, price decimal.Decimal, timestamp time.Time) []CloseResult {
	var results []CloseResult

	for i := 0; i < len(s.open); {
		if s.open[i].Symbol != symbol {
			i++

			continue
		}

		results = append(results, s.closeAt(i, price, timestamp, false))
	}

	return results
}

// applyExits enforces the involuntary exits. Breaches are detected against
// the bar's closing price, but the fill happens at the triggering level
// itself. Per position the precedence is liquidation, then stop loss, then
// take profit; at most one fires per bar.
func (s *runState) applyExits(bar types.MarketData) []CloseResult {
	price := decimal.NewFromFloat(bar.Close)

	var results []CloseResult

	for i := 0; i < len(s.open); {
		position := s.open[i]
		if position.Symbol != bar.Symbol {
			i++

			continue
		}

		switch {
		case position.CheckLiquidation(price):
			results = append(results, s.closeAt(i, position.LiquidationPrice.Unwrap(), bar.Time, true))
		case stopLossHit(position, price):
			results = append(results, s.closeAt(i, position.StopLoss.Unwrap(), bar.Time, false))
		case takeProfitHit(position, price):
			results = append(results, s.closeAt(i, position.TakeProfit.Unwrap(), bar.Time, false))
		default:
			i++
		}
	}

	return results
}

// markEquity appends one equity sample: cash plus the mark-to-market profit
// of every open position at the bar's close.
func (s *runState) markEquity(bar types.MarketData) {
	price := decimal.NewFromFloat(bar.Close)
	equity := s.cash

	for i := range s.open {
		equity = equity.Add(s.open[i].UnrealizedPnL(price))
	}

	s.equity = append(s.equity, types.EquityPoint{Time: bar.Time, Equity: equity})
}

// markPortfolioEquity appends one equity sample for a multi-asset run: cash
// plus the market value of every open position with a known price.
func (s *runState) markPortfolioEquity(timestamp time.Time, prices map[string]decimal.Decimal) {
	equity := s.cash

	for i := range s.open {
		price, ok := prices[s.open[i].Symbol]
		if !ok {
			continue
		}

		equity = equity.Add(s.open[i].Shares.Mul(price))
	}

	s.equity = append(s.equity, types.EquityPoint{Time: timestamp, Equity: equity})
}

func liquidationPrice(side types.PositionSide, price decimal.Decimal, margin decimal.Decimal, shares decimal.Decimal, leverage decimal.Decimal, marginCallRatio decimal.Decimal) optional.Option[decimal.Decimal] {
	if leverage.LessThanOrEqual(decimal.NewFromInt(1)) || shares.IsZero() {
		return optional.None[decimal.Decimal]()
	}

	// the adverse move that burns marginCallRatio of the posted margin
	distance := margin.Mul(marginCallRatio).Div(shares)

	if side == types.PositionSideShort {
		return optional.Some(price.Add(distance))
	}

	return optional.Some(price.Sub(distance))
}

func stopLossHit(position types.Position, price decimal.Decimal) bool {
	if position.StopLoss.IsNone() {
		return false
	}

	stop := position.StopLoss.Unwrap()
	if position.Side == types.PositionSideShort {
		return price.GreaterThanOrEqual(stop)
	}

	return price.LessThanOrEqual(stop)
}

func takeProfitHit(position types.Position, price decimal.Decimal) bool {
	if position.TakeProfit.IsNone() {
		return false
	}

	target := position.TakeProfit.Unwrap()
	if position.Side == types.PositionSideShort {
		return price.LessThanOrEqual(target)
	}

	return price.GreaterThanOrEqual(target)
}
