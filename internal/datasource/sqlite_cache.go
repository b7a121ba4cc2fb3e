package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/rxtech-lab/tradepruf/internal/logger"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// DefaultCacheExpiry is how long a cached range stays valid.
const DefaultCacheExpiry = 7 * 24 * time.Hour

// CachedDataSource wraps a DataSource with a persistent SQLite bar cache.
// A cache hit never touches the underlying source, so repeated backtests
// over the same range work offline.
type CachedDataSource struct {
	underlying DataSource
	db         *sql.DB
	expiry     time.Duration
	logger     *logger.Logger
}

var _ DataSource = (*CachedDataSource)(nil)

// NewCache opens (or creates) the SQLite cache at path and wraps the
// underlying source. A non-positive expiry falls back to DefaultCacheExpiry.
func NewCache(underlying DataSource, path string, expiry time.Duration, log *logger.Logger) (*CachedDataSource, error) {
	if expiry <= 0 {
		expiry = DefaultCacheExpiry
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to open cache database")
	}

	cache := &CachedDataSource{
		underlying: underlying,
		db:         db,
		expiry:     expiry,
		logger:     log,
	}

	if err := cache.migrate(); err != nil {
		db.Close()

		return nil, err
	}

	return cache, nil
}

func (c *CachedDataSource) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			fetched_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS cached_bars (
			key    TEXT NOT NULL,
			time   INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			open   REAL NOT NULL,
			high   REAL NOT NULL,
			low    REAL NOT NULL,
			close  REAL NOT NULL,
			volume REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cached_bars_key_time ON cached_bars(key, time);
	`)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to create cache schema")
	}

	return nil
}

// GetBars implements DataSource. Expired entries are evicted before the
// underlying source is consulted; a failed cache write is logged but never
// fails the fetch.
func (c *CachedDataSource) GetBars(ctx context.Context, asset types.Asset, start time.Time, end time.Time, interval Interval) ([]types.MarketData, error) {
	key := cacheKey(asset, start, end, interval)

	bars, hit, err := c.lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	if hit {
		c.logger.Debug("cache hit", zap.String("key", key), zap.Int("bars", len(bars)))

		return bars, nil
	}

	bars, err = c.underlying.GetBars(ctx, asset, start, end, interval)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, key, bars); err != nil {
		c.logger.Warn("failed to write bar cache", zap.String("key", key), zap.Error(err))
	}

	return bars, nil
}

func (c *CachedDataSource) lookup(ctx context.Context, key string) ([]types.MarketData, bool, error) {
	var fetchedAt int64

	err := c.db.QueryRowContext(ctx, "SELECT fetched_at FROM cache_entries WHERE key = ?", key).Scan(&fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to read cache entry")
	}

	if time.Since(time.Unix(fetchedAt, 0)) > c.expiry {
		c.logger.Debug("cache entry expired", zap.String("key", key))

		if err := c.evict(ctx, key); err != nil {
			return nil, false, err
		}

		return nil, false, nil
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT time, symbol, open, high, low, close, volume
		FROM cached_bars WHERE key = ? ORDER BY time ASC
	`, key)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to read cached bars")
	}
	defer rows.Close()

	var bars []types.MarketData

	for rows.Next() {
		var (
			bar      types.MarketData
			unixNano int64
		)

		if err := rows.Scan(&unixNano, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, false, errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to scan cached bar")
		}

		bar.Time = time.Unix(0, unixNano).UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheFailed, "error iterating cached bars")
	}

	return bars, true, nil
}

func (c *CachedDataSource) store(ctx context.Context, key string, bars []types.MarketData) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO cache_entries (key, fetched_at) VALUES (?, ?)",
		key, time.Now().Unix()); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cached_bars (key, time, symbol, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, bar := range bars {
		if _, err := stmt.ExecContext(ctx,
			key, bar.Time.UnixNano(), bar.Symbol, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (c *CachedDataSource) evict(ctx context.Context, key string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to begin eviction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to evict cache entry")
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cached_bars WHERE key = ?", key); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to evict cached bars")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to commit eviction")
	}

	return nil
}

// Clear removes every cached entry.
func (c *CachedDataSource) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM cache_entries; DELETE FROM cached_bars;"); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheFailed, "failed to clear cache")
	}

	return nil
}

// Close closes the cache database and the underlying source.
func (c *CachedDataSource) Close() error {
	if err := c.db.Close(); err != nil {
		return err
	}

	return c.underlying.Close()
}

func cacheKey(asset types.Asset, start time.Time, end time.Time, interval Interval) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		asset.Symbol, start.Format(time.DateOnly), end.Format(time.DateOnly), interval)
}
