package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/rxtech-lab/tradepruf/internal/logger"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// DuckDBDataSource serves bars from local parquet or CSV files through an
// in-process DuckDB view. Files are expected to carry the columns
// time, symbol, open, high, low, close, volume.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

var _ DataSource = (*DuckDBDataSource)(nil)

// NewDuckDB opens an in-memory DuckDB instance. Call Load to attach a data
// file before querying.
func NewDuckDB(log *logger.Logger) (*DuckDBDataSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDataSourceUnavailable, "failed to open duckdb")
	}

	return &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Load attaches a parquet or CSV file as the bars view, replacing any
// previously loaded file. The reader is picked from the file extension.
func (d *DuckDBDataSource) Load(path string) error {
	d.logger.Debug("loading bar file", zap.String("path", path))

	reader := "read_parquet"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".csv" {
		reader = "read_csv_auto"
	}

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS bars;`); err != nil {
		return errors.Wrap(err, errors.ErrCodeQueryFailed, "failed to drop bars view")
	}

	// CREATE VIEW has no placeholder support, the path is interpolated
	query := fmt.Sprintf(`CREATE VIEW bars AS SELECT * FROM %s('%s');`, reader, path)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(err, errors.ErrCodeDataSourceUnavailable, "failed to load %s", path)
	}

	return nil
}

// GetBars implements DataSource. When the requested interval is coarser than
// the stored bars, rows are resampled with DuckDB's time_bucket: first open,
// max high, min low, last close, summed volume per bucket.
func (d *DuckDBDataSource) GetBars(ctx context.Context, asset types.Asset, start time.Time, end time.Time, interval Interval) ([]types.MarketData, error) {
	minutes, err := interval.Minutes()
	if err != nil {
		return nil, err
	}

	query, args, err := d.buildBarsQuery(asset.Symbol, start, end, minutes)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeQueryFailed, "failed to query bars for %s", asset.Symbol)
	}
	defer rows.Close()

	result := make([]types.MarketData, 0, 1000)

	for rows.Next() {
		var bar types.MarketData
		if err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeQueryFailed, "failed to scan bar row")
		}

		result = append(result, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueryFailed, "error iterating bar rows")
	}

	if len(result) == 0 {
		return nil, errors.Newf(errors.ErrCodeNoDataFound,
			"no data for %s between %s and %s", asset.Symbol, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	return result, nil
}

// Symbols returns the distinct symbols present in the loaded file.
func (d *DuckDBDataSource) Symbols(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT symbol FROM bars ORDER BY symbol")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueryFailed, "failed to query symbols")
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeQueryFailed, "failed to scan symbol")
		}

		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// Count returns the number of stored rows for the symbol.
func (d *DuckDBDataSource) Count(ctx context.Context, symbol string) (int, error) {
	var count int

	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bars WHERE symbol = $1", symbol).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeQueryFailed, "failed to count bars")
	}

	return count, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}

func (d *DuckDBDataSource) buildBarsQuery(symbol string, start time.Time, end time.Time, minutes int) (string, []any, error) {
	// a 1-minute request cannot be coarser than the stored data, so the
	// plain squirrel query avoids the window-function pass
	if minutes == 1 {
		query, args, err := d.sq.
			Select("time", "symbol", "open", "high", "low", "close", "volume").
			From("bars").
			Where(squirrel.And{
				squirrel.Eq{"symbol": symbol},
				squirrel.GtOrEq{"time": start},
				squirrel.LtOrEq{"time": end},
			}).
			OrderBy("time ASC").
			ToSql()
		if err != nil {
			return "", nil, errors.Wrap(err, errors.ErrCodeQueryFailed, "failed to build bars query")
		}

		return query, args, nil
	}

	query := fmt.Sprintf(`
		WITH buckets AS MATERIALIZED (
			SELECT
				time_bucket(INTERVAL '%d minutes', time) as bucket_time,
				symbol,
				FIRST_VALUE(open) OVER w as open,
				MAX(high) OVER w as high,
				MIN(low) OVER w as low,
				LAST_VALUE(close) OVER (PARTITION BY time_bucket(INTERVAL '%d minutes', time), symbol ORDER BY time ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING) as close,
				SUM(volume) OVER w as volume
			FROM bars
			WHERE symbol = $1 AND time >= $2 AND time <= $3
			WINDOW w AS (PARTITION BY time_bucket(INTERVAL '%d minutes', time), symbol ORDER BY time ROWS BETWEEN UNBOUNDED PRECEDING AND UNBOUNDED FOLLOWING)
		)
		SELECT DISTINCT
			bucket_time as time, symbol, open, high, low, close, volume
		FROM buckets
		ORDER BY bucket_time ASC
	`, minutes, minutes, minutes)

	return query, []any{symbol, start, end}, nil
}
