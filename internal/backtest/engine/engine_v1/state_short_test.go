package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradepruf/internal/journal"
	"github.com/rxtech-lab/tradepruf/internal/types"
)

// ShortStateTestSuite mirrors the long-side state tests for short positions:
// profit on a falling price, liquidation above entry, inverted stop and take
// comparisons.
type ShortStateTestSuite struct {
	suite.Suite
}

func TestShortStateSuite(t *testing.T) {
	suite.Run(t, new(ShortStateTestSuite))
}

func (suite *ShortStateTestSuite) bar(price float64, day int) types.MarketData {
	return types.MarketData{
		Symbol: "BTCUSDT",
		Time:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: 1000,
	}
}

func (suite *ShortStateTestSuite) shortSignal(day int) types.Signal {
	return types.Signal{
		Time:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Type:   types.SignalTypeBuy,
		Symbol: "BTCUSDT",
		Side:   optional.Some(types.PositionSideShort),
	}
}

func (suite *ShortStateTestSuite) TestShortProfitsFromFallingPrice() {
	state := newRunState(DefaultConfig(), journal.Discard())

	open := state.openPosition(suite.shortSignal(0), suite.bar(100, 0))
	suite.Require().True(open.Opened)
	suite.Equal(types.PositionSideShort, open.Position.Side)

	results := state.closeSymbol("BTCUSDT", decimal.NewFromInt(90), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	suite.Require().Len(results, 1)

	// 100 shares * (100-90) = 1000 profit on the way down
	suite.True(results[0].RealizedPnL.Equal(decimal.NewFromInt(1000)))
	suite.True(state.cash.Equal(decimal.NewFromInt(101000)))
}

func (suite *ShortStateTestSuite) TestShortLosesWhenPriceRises() {
	state := newRunState(DefaultConfig(), journal.Discard())

	open := state.openPosition(suite.shortSignal(0), suite.bar(100, 0))
	suite.Require().True(open.Opened)

	results := state.closeSymbol("BTCUSDT", decimal.NewFromInt(105), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	suite.Require().Len(results, 1)
	suite.True(results[0].RealizedPnL.Equal(decimal.NewFromInt(-500)))
}

func (suite *ShortStateTestSuite) TestShortLiquidationSitsAboveEntry() {
	config := DefaultConfig()
	config.MaxLeverage = decimal.NewFromInt(5)
	state := newRunState(config, journal.Discard())

	open := state.openPosition(suite.shortSignal(0), suite.bar(100, 0))
	suite.Require().True(open.Opened)

	// same 4-point distance as the long case, mirrored upward
	suite.Require().True(open.Position.LiquidationPrice.IsSome())
	suite.True(open.Position.LiquidationPrice.Unwrap().Equal(decimal.NewFromInt(104)))
}

func (suite *ShortStateTestSuite) TestShortLiquidatesOnRally() {
	config := DefaultConfig()
	config.MaxLeverage = decimal.NewFromInt(5)
	state := newRunState(config, journal.Discard())

	open := state.openPosition(suite.shortSignal(0), suite.bar(100, 0))
	suite.Require().True(open.Opened)

	suite.Empty(state.applyExits(suite.bar(103, 1)), "below the liquidation price the short survives")

	// fills at the liquidation level 104: 500 shares * (100-104) * 5 = -10000
	results := state.applyExits(suite.bar(105, 2))
	suite.Require().Len(results, 1)
	suite.True(results[0].Position.Liquidated)
	suite.True(results[0].Position.ExitPrice.Unwrap().Equal(decimal.NewFromInt(104)))
	suite.True(results[0].RealizedPnL.Equal(decimal.NewFromInt(-10000)))
}

func (suite *ShortStateTestSuite) TestShortStopLossAboveEntry() {
	state := newRunState(DefaultConfig(), journal.Discard())

	signal := suite.shortSignal(0)
	signal.StopLoss = optional.Some(decimal.NewFromInt(106))

	open := state.openPosition(signal, suite.bar(100, 0))
	suite.Require().True(open.Opened)

	suite.Empty(state.applyExits(suite.bar(104, 1)))

	// fills at the stop level 106
	results := state.applyExits(suite.bar(107, 2))
	suite.Require().Len(results, 1)
	suite.False(results[0].Position.Liquidated)
	suite.True(results[0].RealizedPnL.Equal(decimal.NewFromInt(-600)))
}

func (suite *ShortStateTestSuite) TestShortTakeProfitBelowEntry() {
	state := newRunState(DefaultConfig(), journal.Discard())

	signal := suite.shortSignal(0)
	signal.TakeProfit = optional.Some(decimal.NewFromInt(92))

	open := state.openPosition(signal, suite.bar(100, 0))
	suite.Require().True(open.Opened)

	suite.Empty(state.applyExits(suite.bar(95, 1)))

	// fills at the target 92
	results := state.applyExits(suite.bar(91, 2))
	suite.Require().Len(results, 1)
	suite.True(results[0].RealizedPnL.Equal(decimal.NewFromInt(800)))
}

func (suite *ShortStateTestSuite) TestShortEquityMark() {
	state := newRunState(DefaultConfig(), journal.Discard())

	open := state.openPosition(suite.shortSignal(0), suite.bar(100, 0))
	suite.Require().True(open.Opened)

	state.markEquity(suite.bar(90, 1))
	suite.Require().Len(state.equity, 1)

	// cash 90000 + unrealized 1000
	suite.True(state.equity[0].Equity.Equal(decimal.NewFromInt(91000)))
}
