// Package marketdata downloads historical bars from external providers and
// stores them as parquet files for the backtest datasource.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
	"github.com/rxtech-lab/tradepruf/pkg/marketdata/provider"
	"github.com/rxtech-lab/tradepruf/pkg/marketdata/writer"
)

// FetcherConfig configures the download client. PolygonAPIKey is only
// required for the polygon provider.
type FetcherConfig struct {
	Provider      provider.ProviderType `validate:"required,oneof=polygon binance"`
	OutputDir     string                `validate:"required"`
	PolygonAPIKey string                `validate:"required_if=Provider polygon"`
}

// FetchRequest describes one download.
type FetchRequest struct {
	Asset    types.Asset         `validate:"required"`
	Start    time.Time           `validate:"required"`
	End      time.Time           `validate:"required,gtfield=Start"`
	Interval datasource.Interval `validate:"required"`
}

// Fetcher downloads bars from a provider and persists them under the
// configured output directory.
type Fetcher struct {
	provider provider.Provider
	config   FetcherConfig
	validate *validator.Validate
}

// NewFetcher validates the configuration and builds the provider.
func NewFetcher(config FetcherConfig) (*Fetcher, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfiguration, "invalid fetcher configuration")
	}

	marketProvider, err := provider.NewProvider(config.Provider, config.PolygonAPIKey)
	if err != nil {
		return nil, err
	}

	return newFetcherWith(marketProvider, config), nil
}

func newFetcherWith(marketProvider provider.Provider, config FetcherConfig) *Fetcher {
	return &Fetcher{
		provider: marketProvider,
		config:   config,
		validate: validator.New(),
	}
}

// Fetch downloads the requested bars and writes them to a parquet file named
// SYMBOL_START_END_INTERVAL.parquet under the output directory. Returns the
// path of the written file.
func (f *Fetcher) Fetch(ctx context.Context, request FetchRequest, onProgress provider.OnFetchProgress) (string, error) {
	if err := f.validate.Struct(request); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidParameter, "invalid fetch request")
	}

	bars, err := f.provider.FetchBars(ctx, request.Asset, request.Start, request.End, request.Interval, onProgress)
	if err != nil {
		return "", err
	}

	if len(bars) == 0 {
		return "", errors.Newf(errors.ErrCodeNoDataFound, "provider returned no bars for %s", request.Asset.Symbol)
	}

	if err := os.MkdirAll(f.config.OutputDir, 0755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to create output directory")
	}

	outputPath := filepath.Join(f.config.OutputDir, fetchFileName(request))

	parquetWriter := writer.NewParquetWriter(outputPath)
	if err := parquetWriter.Initialize(); err != nil {
		return "", err
	}

	defer parquetWriter.Close()

	for _, bar := range bars {
		if err := parquetWriter.Write(bar); err != nil {
			return "", err
		}
	}

	return parquetWriter.Finalize()
}

func fetchFileName(request FetchRequest) string {
	return fmt.Sprintf("%s_%s_%s_%s.parquet",
		request.Asset.Symbol,
		request.Start.Format(time.DateOnly),
		request.End.Format(time.DateOnly),
		request.Interval,
	)
}
