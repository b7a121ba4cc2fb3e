package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// writeResults persists one finished run under
// <resultsFolder>/<runName>_<timestamp>/: the metrics summary as YAML and
// the equity curve and trade list as parquet.
func (b *BacktestEngineV1) writeResults(state *runState, performance types.PerformanceMetrics, runName string) (string, error) {
	folder := filepath.Join(b.resultsFolder, fmt.Sprintf("%s_%s", runName, time.Now().Format("20060102_150405")))
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "failed to create results folder")
	}

	if err := types.WritePerformanceMetrics(filepath.Join(folder, "metrics.yaml"), performance); err != nil {
		return "", err
	}

	if err := writeEquityParquet(filepath.Join(folder, "equity.parquet"), state.equity); err != nil {
		return "", err
	}

	if err := writeTradesParquet(filepath.Join(folder, "trades.parquet"), state.closed); err != nil {
		return "", err
	}

	return folder, nil
}

func writeEquityParquet(path string, curve []types.EquityPoint) error {
	return withResultsDB(path, `
		CREATE TABLE equity (
			time   TIMESTAMP,
			equity DOUBLE
		)
	`, "INSERT INTO equity (time, equity) VALUES (?, ?)", "equity", func(stmt *sql.Stmt) error {
		for _, point := range curve {
			if _, err := stmt.Exec(point.Time, point.Equity.InexactFloat64()); err != nil {
				return err
			}
		}

		return nil
	})
}

func writeTradesParquet(path string, closed []types.Position) error {
	return withResultsDB(path, `
		CREATE TABLE trades (
			id          TEXT,
			symbol      TEXT,
			side        TEXT,
			entry_time  TIMESTAMP,
			exit_time   TIMESTAMP,
			entry_price DOUBLE,
			exit_price  DOUBLE,
			shares      DOUBLE,
			leverage    DOUBLE,
			pnl         DOUBLE,
			liquidated  BOOLEAN
		)
	`, `
		INSERT INTO trades (id, symbol, side, entry_time, exit_time, entry_price, exit_price, shares, leverage, pnl, liquidated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, "trades", func(stmt *sql.Stmt) error {
		for _, position := range closed {
			pnl := position.ProfitLoss().TakeOr(decimal.Zero)

			if _, err := stmt.Exec(
				position.ID,
				position.Symbol,
				string(position.Side),
				position.EntryTime,
				position.ExitTime.TakeOr(time.Time{}),
				position.EntryPrice.InexactFloat64(),
				position.ExitPrice.TakeOr(decimal.Zero).InexactFloat64(),
				position.Shares.InexactFloat64(),
				position.Leverage.InexactFloat64(),
				pnl.InexactFloat64(),
				position.Liquidated,
			); err != nil {
				return err
			}
		}

		return nil
	})
}

// withResultsDB runs the standard in-memory duckdb export: create table,
// bulk insert inside a transaction, COPY to parquet.
func withResultsDB(path string, createSQL string, insertSQL string, table string, insert func(stmt *sql.Stmt) error) error {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "failed to open duckdb for results")
	}
	defer db.Close()

	if _, err := db.Exec(createSQL); err != nil {
		return errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "failed to create results table")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "failed to begin results transaction")
	}

	stmt, err := tx.Prepare(insertSQL)
	if err != nil {
		tx.Rollback()

		return errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "failed to prepare results insert")
	}

	if err := insert(stmt); err != nil {
		stmt.Close()
		tx.Rollback()

		return errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "failed to insert results rows")
	}

	stmt.Close()

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "failed to commit results")
	}

	if _, err := db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, path)); err != nil {
		return errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "failed to export results parquet")
	}

	return nil
}
