package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// binancePageSize is the kline page size; a short page marks the last page.
const binancePageSize = 500

// BinanceProvider fetches klines from the public Binance spot API. No API key
// is needed for historical market data.
type BinanceProvider struct {
	client *binance.Client
}

func NewBinanceProvider() *BinanceProvider {
	return &BinanceProvider{client: binance.NewClient("", "")}
}

func (p *BinanceProvider) Name() string {
	return string(ProviderBinance)
}

// FetchBars implements Provider. Pages through the klines endpoint, advancing
// past the close time of each page's last kline to avoid duplicates.
func (p *BinanceProvider) FetchBars(ctx context.Context, asset types.Asset, start time.Time, end time.Time, interval datasource.Interval, onProgress OnFetchProgress) ([]types.MarketData, error) {
	if _, err := interval.Minutes(); err != nil {
		return nil, err
	}

	progress := progressOrNoop(onProgress)
	symbol := asset.ProviderSymbol()

	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()
	currentStart := startMillis

	var bars []types.MarketData

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(string(interval)).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeMarketDataFetchFailed, "binance download failed for %s", symbol)
		}

		bars = append(bars, convertKlines(asset.Symbol, klines)...)

		progress(float64(currentStart-startMillis), float64(endMillis-startMillis),
			fmt.Sprintf("Downloading %s from binance", asset.Symbol))

		if len(klines) < binancePageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return bars, nil
}

// convertKlines maps binance klines onto bars, keyed by the kline open time.
func convertKlines(symbol string, klines []*binance.Kline) []types.MarketData {
	bars := make([]types.MarketData, 0, len(klines))

	for _, kline := range klines {
		open, _ := strconv.ParseFloat(kline.Open, 64)
		high, _ := strconv.ParseFloat(kline.High, 64)
		low, _ := strconv.ParseFloat(kline.Low, 64)
		closePrice, _ := strconv.ParseFloat(kline.Close, 64)
		volume, _ := strconv.ParseFloat(kline.Volume, 64)

		bars = append(bars, types.MarketData{
			Symbol: symbol,
			Time:   time.UnixMilli(kline.OpenTime),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return bars
}
