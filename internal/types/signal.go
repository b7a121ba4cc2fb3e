package types

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// SignalType is a per-bar directional instruction produced by a strategy.
type SignalType string

const (
	// SignalTypeBuy tells the engine to open a new position.
	SignalTypeBuy SignalType = "BUY"
	// SignalTypeSell tells the engine to close all open positions for the instrument.
	SignalTypeSell SignalType = "SELL"
	// SignalTypeHold tells the engine to take no action.
	SignalTypeHold SignalType = "HOLD"
)

// Signal is one directional instruction, aligned 1:1 with the bar that produced it.
// The optional fields let a strategy override the engine defaults for the trade
// opened by this signal; the engine ignores them on SELL and HOLD signals.
type Signal struct {
	// Time is the timestamp of the bar this signal belongs to.
	Time time.Time
	// Type is the directional instruction.
	Type SignalType
	// Symbol is the instrument the signal applies to.
	Symbol string
	// Reason is an optional free-text note from the strategy.
	Reason string
	// Side overrides the position direction. Defaults to long.
	Side optional.Option[PositionSide]
	// Leverage overrides the configured leverage for this trade.
	Leverage optional.Option[decimal.Decimal]
	// StopLoss sets a protective stop on the opened position.
	StopLoss optional.Option[decimal.Decimal]
	// TakeProfit sets a profit target on the opened position.
	TakeProfit optional.Option[decimal.Decimal]
}
