// Package writer persists fetched bar series to local files the backtest
// datasource can load.
package writer

import "github.com/rxtech-lab/tradepruf/internal/types"

// Writer persists a bar series. Initialize, write every bar, then Finalize to
// produce the output file; Close is safe to call at any point and rolls back
// anything not finalized.
type Writer interface {
	Initialize() error
	Write(bar types.MarketData) error
	// Finalize flushes the buffered bars and returns the output file path.
	Finalize() (string, error)
	Close() error
}
