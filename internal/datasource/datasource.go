// Package datasource provides historical bar series to the backtest engine.
// The DuckDB implementation reads local parquet or CSV files; the SQLite
// cache wraps any provider-backed source so repeated runs over the same
// range never refetch.
package datasource

import (
	"context"
	"time"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// Interval is the bar duration of a series.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// Minutes returns the interval length in minutes.
func (i Interval) Minutes() (int, error) {
	switch i {
	case Interval1m:
		return 1, nil
	case Interval5m:
		return 5, nil
	case Interval15m:
		return 15, nil
	case Interval30m:
		return 30, nil
	case Interval1h:
		return 60, nil
	case Interval4h:
		return 240, nil
	case Interval1d:
		return 1440, nil
	case Interval1w:
		return 10080, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval: %s", i)
	}
}

// DataSource serves OHLCV bars for one asset over a time range, ordered by
// time ascending.
type DataSource interface {
	// GetBars returns the bar series for the asset between start and end
	// inclusive, resampled to the given interval when the stored data is
	// finer grained.
	GetBars(ctx context.Context, asset types.Asset, start time.Time, end time.Time, interval Interval) ([]types.MarketData, error)
	// Close releases any underlying resources.
	Close() error
}
