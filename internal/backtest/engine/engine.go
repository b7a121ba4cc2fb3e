// Package engine defines the backtest engine contract. The concrete
// implementation lives in engine_v1.
package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/internal/journal"
	"github.com/rxtech-lab/tradepruf/internal/strategy"
	"github.com/rxtech-lab/tradepruf/internal/types"
)

// OnProgressCallback is invoked once per processed bar.
type OnProgressCallback func(current int, total int)

// Request describes one single-asset backtest run.
type Request struct {
	Strategy strategy.Strategy
	Asset    types.Asset
	Start    time.Time
	End      time.Time
	Interval datasource.Interval
}

// PortfolioRequest describes one multi-asset backtest run over a shared
// capital pool. Each asset trades under its own strategy, keyed by symbol.
type PortfolioRequest struct {
	Strategies map[string]strategy.Strategy
	Assets     []types.Asset
	Start      time.Time
	End        time.Time
	Interval   datasource.Interval
}

// Result is the outcome of a finished run.
type Result struct {
	Metrics     types.PerformanceMetrics
	EquityCurve []types.EquityPoint
	// ResultsFolder is the directory results were written to, empty when no
	// folder was configured.
	ResultsFolder string
}

// Engine replays historical bars through a strategy and accounts for every
// simulated trade.
type Engine interface {
	// Initialize parses and validates the YAML engine configuration.
	Initialize(config string) error
	// SetDataSource sets the bar provider for subsequent runs.
	SetDataSource(source datasource.DataSource) error
	// SetJournal directs the run journal; defaults to a discarding writer.
	SetJournal(writer *journal.Writer) error
	// SetResultsFolder enables result writing under the given directory.
	SetResultsFolder(folder string) error
	// Run executes a single-asset backtest.
	Run(ctx context.Context, request Request, onProgress optional.Option[OnProgressCallback]) (*Result, error)
	// RunPortfolio executes a multi-asset backtest over a shared capital pool.
	RunPortfolio(ctx context.Context, request PortfolioRequest, onProgress optional.Option[OnProgressCallback]) (*Result, error)
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
