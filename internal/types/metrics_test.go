package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) TestEmptyMetrics() {
	metrics := EmptyMetrics()
	suite.Equal(0, metrics.TotalTrades)
	suite.True(metrics.WinRate.IsZero())
	suite.True(metrics.MaxDrawdown.IsZero())
	suite.NotNil(metrics.ClosedPositions)
	suite.Empty(metrics.ClosedPositions)
}

func (suite *MetricsTestSuite) TestWritePerformanceMetrics() {
	entryTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	position := Position{
		ID:         "p1",
		Symbol:     "BTCUSDT",
		Side:       PositionSideLong,
		EntryPrice: decimal.NewFromInt(100),
		EntryTime:  entryTime,
		Shares:     decimal.NewFromInt(10),
		Leverage:   decimal.NewFromInt(1),
		SpreadFee:  decimal.Zero,
		ExitPrice:  optional.Some(decimal.NewFromInt(110)),
		ExitTime:   optional.Some(entryTime.AddDate(0, 0, 5)),
	}

	metrics := EmptyMetrics()
	metrics.TotalTrades = 1
	metrics.WinningTrades = 1
	metrics.WinRate = decimal.NewFromInt(1)
	metrics.ClosedPositions = []Position{position}

	path := filepath.Join(suite.T().TempDir(), "metrics.yaml")
	err := WritePerformanceMetrics(path, metrics)
	suite.NoError(err)

	data, err := os.ReadFile(path)
	suite.NoError(err)

	var doc map[string]any
	suite.NoError(yaml.Unmarshal(data, &doc))
	suite.Equal(1, doc["total_trades"])
	suite.Equal("1", doc["win_rate"])

	trades, ok := doc["trades"].([]any)
	suite.True(ok)
	suite.Len(trades, 1)

	trade, ok := trades[0].(map[string]any)
	suite.True(ok)
	suite.Equal("BTCUSDT", trade["symbol"])
	suite.Equal("100", trade["profit_loss"])
}
