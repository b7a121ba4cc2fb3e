package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// PositionSide is the direction of a position's market exposure.
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

var two = decimal.NewFromInt(2)

// Position represents one leveraged trade. A position is open while ExitPrice
// is unset; closing it is a one-way transition performed by the engine.
type Position struct {
	// ID uniquely identifies the position within a run.
	ID string
	// Symbol is the instrument identifier.
	Symbol string
	// Side is the direction of the exposure.
	Side PositionSide
	// EntryPrice is the fill price at open.
	EntryPrice decimal.Decimal
	// EntryTime is the bar timestamp at open.
	EntryTime time.Time
	// Shares is the (possibly fractional) quantity, rounded to 3 decimal places at open.
	Shares decimal.Decimal
	// Leverage is the notional multiplier applied to the posted margin.
	Leverage decimal.Decimal
	// SpreadFee is the per-share fee, charged once on entry and once on exit.
	SpreadFee decimal.Decimal
	// LiquidationPrice is the price at which the position is force-closed.
	// Unset for unleveraged positions.
	LiquidationPrice optional.Option[decimal.Decimal]
	// StopLoss closes the position when the price moves against it past this level.
	StopLoss optional.Option[decimal.Decimal]
	// TakeProfit closes the position when the price moves in its favor past this level.
	TakeProfit optional.Option[decimal.Decimal]
	// ExitPrice is the fill price at close. Unset while the position is open.
	ExitPrice optional.Option[decimal.Decimal]
	// ExitTime is the bar timestamp at close.
	ExitTime optional.Option[time.Time]
	// Liquidated records whether the close was a forced liquidation.
	// Informational only, it does not change the accounting.
	Liquidated bool
}

// IsOpen reports whether the position has not been closed yet.
func (p *Position) IsOpen() bool {
	return p.ExitPrice.IsNone()
}

// NotionalValue is the leveraged exposure of the position.
func (p *Position) NotionalValue() decimal.Decimal {
	return p.Shares.Mul(p.EntryPrice).Mul(p.Leverage)
}

// RequiredMargin is the cash posted to carry the position.
func (p *Position) RequiredMargin() decimal.Decimal {
	return p.EntryPrice.Mul(p.Shares).Div(p.Leverage)
}

// totalSpreadCost is the round-trip fee: per-share spread charged on entry and exit.
func (p *Position) totalSpreadCost() decimal.Decimal {
	return p.SpreadFee.Mul(p.Shares).Mul(two)
}

// UnrealizedPnL returns the mark-to-market profit of the open position at the
// given price, net of the round-trip spread cost.
func (p *Position) UnrealizedPnL(currentPrice decimal.Decimal) decimal.Decimal {
	diff := currentPrice.Sub(p.EntryPrice)
	if p.Side == PositionSideShort {
		diff = p.EntryPrice.Sub(currentPrice)
	}

	return diff.Mul(p.Shares).Mul(p.Leverage).Sub(p.totalSpreadCost())
}

// ProfitLoss returns the realized profit of a closed position, or None while
// it is still open.
func (p *Position) ProfitLoss() optional.Option[decimal.Decimal] {
	if p.ExitPrice.IsNone() {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(p.UnrealizedPnL(p.ExitPrice.Unwrap()))
}

// ProfitLossPct returns the realized profit as a percentage of the posted margin.
func (p *Position) ProfitLossPct() optional.Option[decimal.Decimal] {
	pnl := p.ProfitLoss()
	if pnl.IsNone() {
		return optional.None[decimal.Decimal]()
	}

	margin := p.RequiredMargin()
	if margin.IsZero() {
		return optional.Some(decimal.Zero)
	}

	return optional.Some(pnl.Unwrap().Div(margin).Mul(decimal.NewFromInt(100)))
}

// Duration returns the holding time in whole days of a closed position.
func (p *Position) Duration() optional.Option[int] {
	if p.ExitTime.IsNone() {
		return optional.None[int]()
	}

	return optional.Some(int(p.ExitTime.Unwrap().Sub(p.EntryTime).Hours() / 24))
}

// CheckLiquidation reports whether the current price has crossed the
// liquidation price in the adverse direction. Unleveraged positions are never
// liquidated. Longs liquidate at or below the liquidation price, shorts at or
// above it.
func (p *Position) CheckLiquidation(currentPrice decimal.Decimal) bool {
	if p.Leverage.LessThanOrEqual(decimal.NewFromInt(1)) {
		return false
	}

	if p.LiquidationPrice.IsNone() {
		return false
	}

	liquidation := p.LiquidationPrice.Unwrap()
	if p.Side == PositionSideShort {
		return currentPrice.GreaterThanOrEqual(liquidation)
	}

	return currentPrice.LessThanOrEqual(liquidation)
}
