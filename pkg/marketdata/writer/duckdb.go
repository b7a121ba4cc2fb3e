package writer

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// ParquetWriter buffers bars in an in-memory DuckDB table and exports them as
// a single parquet file on Finalize.
type ParquetWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
}

func NewParquetWriter(outputPath string) *ParquetWriter {
	return &ParquetWriter{
		db:         nil,
		tx:         nil,
		stmt:       nil,
		outputPath: outputPath,
	}
}

// Initialize opens the in-memory database, creates the staging table and
// prepares the bulk insert.
func (w *ParquetWriter) Initialize() error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to open duckdb")
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS market_data (
			time   TIMESTAMP,
			symbol TEXT,
			open   DOUBLE,
			high   DOUBLE,
			low    DOUBLE,
			close  DOUBLE,
			volume DOUBLE
		)
	`); err != nil {
		db.Close()

		return errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to create staging table")
	}

	tx, err := db.Begin()
	if err != nil {
		db.Close()

		return errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to begin transaction")
	}

	stmt, err := tx.Prepare(`
		INSERT INTO market_data (time, symbol, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		db.Close()

		return errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to prepare insert")
	}

	w.db = db
	w.tx = tx
	w.stmt = stmt

	return nil
}

// Write stages one bar inside the open transaction.
func (w *ParquetWriter) Write(bar types.MarketData) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeMarketDataWriteFailed, "writer is not initialized")
	}

	if _, err := w.stmt.Exec(
		bar.Time,
		bar.Symbol,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
	); err != nil {
		return errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to stage bar")
	}

	return nil
}

// Finalize commits the staged bars and copies them to the parquet file.
func (w *ParquetWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeMarketDataWriteFailed, "writer is not initialized")
	}

	w.stmt.Close()
	w.stmt = nil

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()
		w.tx = nil

		return "", errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to commit staged bars")
	}

	w.tx = nil

	if _, err := w.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM market_data ORDER BY time) TO '%s' (FORMAT PARQUET)`, w.outputPath)); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to export parquet")
	}

	return w.outputPath, nil
}

// Close releases the statement, rolls back any unfinalized transaction and
// closes the database.
func (w *ParquetWriter) Close() error {
	if w.stmt != nil {
		w.stmt.Close()
		w.stmt = nil
	}

	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}

	if w.db != nil {
		err := w.db.Close()
		w.db = nil

		if err != nil {
			return errors.Wrap(err, errors.ErrCodeMarketDataWriteFailed, "failed to close duckdb")
		}
	}

	return nil
}
