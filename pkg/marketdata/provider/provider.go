// Package provider fetches historical bars from external market data APIs.
package provider

import (
	"context"
	"time"

	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// ProviderType identifies a supported market data provider.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// OnFetchProgress reports fetch progress. total may be an estimate.
type OnFetchProgress = func(current float64, total float64, message string)

// Provider fetches historical bars for one asset and date range. Bars are
// returned in ascending time order.
type Provider interface {
	// Name returns the provider identifier for logs and file names.
	Name() string
	// FetchBars downloads the bars of the asset between start and end at the
	// given interval. Cancel the context to abort the download.
	FetchBars(ctx context.Context, asset types.Asset, start time.Time, end time.Time, interval datasource.Interval, onProgress OnFetchProgress) ([]types.MarketData, error)
}

// NewProvider creates a provider of the given type. apiKey is required for
// polygon and ignored for binance.
func NewProvider(providerType ProviderType, apiKey string) (Provider, error) {
	switch providerType {
	case ProviderPolygon:
		return NewPolygonProvider(apiKey)
	case ProviderBinance:
		return NewBinanceProvider(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

func noopProgress(_ float64, _ float64, _ string) {}

func progressOrNoop(onProgress OnFetchProgress) OnFetchProgress {
	if onProgress == nil {
		return noopProgress
	}

	return onProgress
}
