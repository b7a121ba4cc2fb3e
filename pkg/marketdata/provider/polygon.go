package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

const polygonPageLimit = 50000

// PolygonProvider fetches aggregate bars from the Polygon.io REST API.
type PolygonProvider struct {
	client *polygon.Client
}

func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon API key is required")
	}

	return &PolygonProvider{client: polygon.New(apiKey)}, nil
}

func (p *PolygonProvider) Name() string {
	return string(ProviderPolygon)
}

// FetchBars implements Provider using the paginated aggregates endpoint.
func (p *PolygonProvider) FetchBars(ctx context.Context, asset types.Asset, start time.Time, end time.Time, interval datasource.Interval, onProgress OnFetchProgress) ([]types.MarketData, error) {
	multiplier, timespan, err := polygonAggs(interval)
	if err != nil {
		return nil, err
	}

	progress := progressOrNoop(onProgress)
	symbol := asset.ProviderSymbol()

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(polygonPageLimit)

	iter := p.client.ListAggs(ctx, params)
	total := float64(end.Sub(start))

	var bars []types.MarketData

	for iter.Next() {
		agg := iter.Item()
		barTime := time.Time(agg.Timestamp)

		bars = append(bars, types.MarketData{
			Symbol: asset.Symbol,
			Time:   barTime,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})

		progress(float64(barTime.Sub(start)), total, fmt.Sprintf("Downloading %s from polygon", asset.Symbol))
	}

	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeMarketDataFetchFailed, "polygon download failed for %s", symbol)
	}

	return bars, nil
}

// polygonAggs maps an interval onto polygon's multiplier/timespan pair.
func polygonAggs(interval datasource.Interval) (int, models.Timespan, error) {
	switch interval {
	case datasource.Interval1m:
		return 1, models.Minute, nil
	case datasource.Interval5m:
		return 5, models.Minute, nil
	case datasource.Interval15m:
		return 15, models.Minute, nil
	case datasource.Interval30m:
		return 30, models.Minute, nil
	case datasource.Interval1h:
		return 1, models.Hour, nil
	case datasource.Interval4h:
		return 4, models.Hour, nil
	case datasource.Interval1d:
		return 1, models.Day, nil
	case datasource.Interval1w:
		return 1, models.Week, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unsupported polygon interval: %s", interval)
	}
}
