package datasource

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradepruf/internal/logger"
	"github.com/rxtech-lab/tradepruf/internal/types"
)

// fakeSource serves a fixed bar series and counts how often it is hit.
type fakeSource struct {
	bars  []types.MarketData
	calls int
}

func (f *fakeSource) GetBars(_ context.Context, _ types.Asset, _ time.Time, _ time.Time, _ Interval) ([]types.MarketData, error) {
	f.calls++

	return f.bars, nil
}

func (f *fakeSource) Close() error {
	return nil
}

type CacheTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func (suite *CacheTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	suite.Require().NoError(err)
	suite.logger = log
}

func (suite *CacheTestSuite) fixtureBars() []types.MarketData {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.MarketData, 0, 3)

	for i := 0; i < 3; i++ {
		price := 100 + float64(i)
		bars = append(bars, types.MarketData{
			Symbol: "AAPL",
			Time:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + 0.5,
			Volume: 1000,
		})
	}

	return bars
}

func (suite *CacheTestSuite) newCache(source DataSource, expiry time.Duration) *CachedDataSource {
	path := filepath.Join(suite.T().TempDir(), "cache.db")

	cache, err := NewCache(source, path, expiry, suite.logger)
	suite.Require().NoError(err)

	return cache
}

func (suite *CacheTestSuite) TestSecondFetchServedFromCache() {
	source := &fakeSource{bars: suite.fixtureBars()}
	cache := suite.newCache(source, time.Hour)

	defer cache.Close()

	asset := types.Asset{Symbol: "AAPL", Type: types.AssetTypeStock}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	first, err := cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)
	suite.Equal(1, source.calls)

	second, err := cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)
	suite.Equal(1, source.calls, "cache hit must not touch the underlying source")
	suite.Equal(first, second)
}

func (suite *CacheTestSuite) TestNilLoggerDefaultsToNop() {
	source := &fakeSource{bars: suite.fixtureBars()}
	path := filepath.Join(suite.T().TempDir(), "cache.db")

	cache, err := NewCache(source, path, time.Hour, nil)
	suite.Require().NoError(err)

	defer cache.Close()

	asset := types.Asset{Symbol: "AAPL", Type: types.AssetTypeStock}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	// the second call hits the cache and its debug logging
	_, err = cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)

	_, err = cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)
	suite.Equal(1, source.calls)
}

func (suite *CacheTestSuite) TestDifferentRangesMissSeparately() {
	source := &fakeSource{bars: suite.fixtureBars()}
	cache := suite.newCache(source, time.Hour)

	defer cache.Close()

	asset := types.Asset{Symbol: "AAPL", Type: types.AssetTypeStock}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := cache.GetBars(context.Background(), asset, start, start.AddDate(0, 0, 2), Interval1d)
	suite.NoError(err)

	_, err = cache.GetBars(context.Background(), asset, start, start.AddDate(0, 0, 5), Interval1d)
	suite.NoError(err)

	suite.Equal(2, source.calls)
}

func (suite *CacheTestSuite) TestExpiredEntryRefetches() {
	source := &fakeSource{bars: suite.fixtureBars()}
	// nanosecond expiry: every entry is stale by the next call
	cache := suite.newCache(source, time.Nanosecond)

	defer cache.Close()

	asset := types.Asset{Symbol: "AAPL", Type: types.AssetTypeStock}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	_, err := cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)

	time.Sleep(time.Millisecond)

	_, err = cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)
	suite.Equal(2, source.calls, "expired entry must be refetched")
}

func (suite *CacheTestSuite) TestClear() {
	source := &fakeSource{bars: suite.fixtureBars()}
	cache := suite.newCache(source, time.Hour)

	defer cache.Close()

	asset := types.Asset{Symbol: "AAPL", Type: types.AssetTypeStock}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	_, err := cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)

	suite.NoError(cache.Clear(context.Background()))

	_, err = cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)
	suite.Equal(2, source.calls)
}

func (suite *CacheTestSuite) TestCachedBarsRoundTripTimes() {
	source := &fakeSource{bars: suite.fixtureBars()}
	cache := suite.newCache(source, time.Hour)

	defer cache.Close()

	asset := types.Asset{Symbol: "AAPL", Type: types.AssetTypeStock}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	_, err := cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)

	cached, err := cache.GetBars(context.Background(), asset, start, end, Interval1d)
	suite.NoError(err)
	suite.Require().Len(cached, 3)
	suite.True(cached[0].Time.Equal(start))
	suite.Equal("AAPL", cached[0].Symbol)
	suite.Equal(100.5, cached[0].Close)
}
