package provider

import (
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

type ProviderTestSuite struct {
	suite.Suite
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

func (suite *ProviderTestSuite) TestNewProviderRejectsUnknownType() {
	_, err := NewProvider("yahoo", "")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
}

func (suite *ProviderTestSuite) TestPolygonRequiresAPIKey() {
	_, err := NewPolygonProvider("")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))

	provider, err := NewPolygonProvider("test-key")
	suite.NoError(err)
	suite.Equal("polygon", provider.Name())
}

func (suite *ProviderTestSuite) TestBinanceNeedsNoKey() {
	provider := NewBinanceProvider()
	suite.Equal("binance", provider.Name())
}

func (suite *ProviderTestSuite) TestPolygonAggsMapping() {
	cases := []struct {
		interval   datasource.Interval
		multiplier int
		timespan   models.Timespan
	}{
		{datasource.Interval1m, 1, models.Minute},
		{datasource.Interval15m, 15, models.Minute},
		{datasource.Interval4h, 4, models.Hour},
		{datasource.Interval1d, 1, models.Day},
		{datasource.Interval1w, 1, models.Week},
	}

	for _, testCase := range cases {
		multiplier, timespan, err := polygonAggs(testCase.interval)
		suite.NoError(err)
		suite.Equal(testCase.multiplier, multiplier, string(testCase.interval))
		suite.Equal(testCase.timespan, timespan, string(testCase.interval))
	}

	_, _, err := polygonAggs("3d")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInterval))
}

func (suite *ProviderTestSuite) TestConvertKlines() {
	openTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := []*binance.Kline{
		{
			OpenTime: openTime.UnixMilli(),
			Open:     "42000.5",
			High:     "42100.0",
			Low:      "41900.25",
			Close:    "42050.75",
			Volume:   "123.456",
		},
	}

	bars := convertKlines("BTCUSDT", klines)
	suite.Require().Len(bars, 1)
	suite.Equal("BTCUSDT", bars[0].Symbol)
	suite.True(bars[0].Time.Equal(openTime))
	suite.InDelta(42000.5, bars[0].Open, 1e-9)
	suite.InDelta(42050.75, bars[0].Close, 1e-9)
	suite.InDelta(123.456, bars[0].Volume, 1e-9)
}
