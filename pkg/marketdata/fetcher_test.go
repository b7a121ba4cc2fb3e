package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
	"github.com/rxtech-lab/tradepruf/pkg/marketdata/provider"
)

// stubProvider returns a canned bar series without touching the network.
type stubProvider struct {
	bars []types.MarketData
}

func (s *stubProvider) Name() string {
	return "stub"
}

func (s *stubProvider) FetchBars(_ context.Context, _ types.Asset, _ time.Time, _ time.Time, _ datasource.Interval, onProgress provider.OnFetchProgress) ([]types.MarketData, error) {
	if onProgress != nil {
		onProgress(1, 1, "done")
	}

	return s.bars, nil
}

type FetcherTestSuite struct {
	suite.Suite
}

func TestFetcherSuite(t *testing.T) {
	suite.Run(t, new(FetcherTestSuite))
}

func (suite *FetcherTestSuite) stubBars(n int) []types.MarketData {
	bars := make([]types.MarketData, n)
	for i := range bars {
		bars[i] = types.MarketData{
			Symbol: "BTCUSDT",
			Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100.5,
			Volume: 1000,
		}
	}

	return bars
}

func (suite *FetcherTestSuite) request() FetchRequest {
	return FetchRequest{
		Asset:    types.Asset{Symbol: "BTCUSDT", Type: types.AssetTypeCrypto},
		Start:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Interval: datasource.Interval1h,
	}
}

func (suite *FetcherTestSuite) TestNewFetcherValidatesConfig() {
	_, err := NewFetcher(FetcherConfig{Provider: "yahoo", OutputDir: suite.T().TempDir(), PolygonAPIKey: ""})
	suite.Error(err)

	// polygon without an API key
	_, err = NewFetcher(FetcherConfig{Provider: provider.ProviderPolygon, OutputDir: suite.T().TempDir(), PolygonAPIKey: ""})
	suite.Error(err)

	// binance needs no key
	_, err = NewFetcher(FetcherConfig{Provider: provider.ProviderBinance, OutputDir: suite.T().TempDir(), PolygonAPIKey: ""})
	suite.NoError(err)
}

func (suite *FetcherTestSuite) TestFetchWritesParquetFile() {
	dir := suite.T().TempDir()
	fetcher := newFetcherWith(&stubProvider{bars: suite.stubBars(24)}, FetcherConfig{
		Provider:      provider.ProviderBinance,
		OutputDir:     dir,
		PolygonAPIKey: "",
	})

	path, err := fetcher.Fetch(context.Background(), suite.request(), nil)
	suite.Require().NoError(err)
	suite.FileExists(path)
	suite.Contains(path, "BTCUSDT_2024-01-01_2024-01-02_1h.parquet")
}

func (suite *FetcherTestSuite) TestFetchRejectsInvertedRange() {
	fetcher := newFetcherWith(&stubProvider{bars: suite.stubBars(1)}, FetcherConfig{
		Provider:      provider.ProviderBinance,
		OutputDir:     suite.T().TempDir(),
		PolygonAPIKey: "",
	})

	request := suite.request()
	request.Start, request.End = request.End, request.Start

	_, err := fetcher.Fetch(context.Background(), request, nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *FetcherTestSuite) TestFetchFailsOnEmptySeries() {
	fetcher := newFetcherWith(&stubProvider{bars: nil}, FetcherConfig{
		Provider:      provider.ProviderBinance,
		OutputDir:     suite.T().TempDir(),
		PolygonAPIKey: "",
	})

	_, err := fetcher.Fetch(context.Background(), suite.request(), nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoDataFound))
}

func (suite *FetcherTestSuite) TestFetchedFileLoadsIntoDataSource() {
	dir := suite.T().TempDir()
	fetcher := newFetcherWith(&stubProvider{bars: suite.stubBars(24)}, FetcherConfig{
		Provider:      provider.ProviderBinance,
		OutputDir:     dir,
		PolygonAPIKey: "",
	})

	path, err := fetcher.Fetch(context.Background(), suite.request(), nil)
	suite.Require().NoError(err)

	source, err := datasource.NewDuckDB(nil)
	suite.Require().NoError(err)

	defer source.Close()

	suite.Require().NoError(source.Load(path))

	request := suite.request()

	bars, err := source.GetBars(context.Background(), request.Asset, request.Start, request.End, datasource.Interval1h)
	suite.Require().NoError(err)
	suite.Len(bars, 24)
	suite.Equal("BTCUSDT", bars[0].Symbol)
}
