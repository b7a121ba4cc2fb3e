package engine

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/rxtech-lab/tradepruf/internal/backtest/engine"
	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/internal/journal"
	"github.com/rxtech-lab/tradepruf/internal/logger"
	"github.com/rxtech-lab/tradepruf/internal/metrics"
	"github.com/rxtech-lab/tradepruf/internal/strategy"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// BacktestEngineV1 replays bars one at a time against precomputed signals.
// Runs are strictly sequential and single threaded; all cross-run state
// lives in a fresh runState per run.
type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	log           *logger.Logger
	datasource    datasource.DataSource
	journal       *journal.Writer
	resultsFolder string
	initialized   bool
}

var _ engine.Engine = (*BacktestEngineV1)(nil)

func NewBacktestEngineV1() *BacktestEngineV1 {
	return &BacktestEngineV1{
		config:        EmptyConfig(),
		log:           nil,
		datasource:    nil,
		journal:       journal.Discard(),
		resultsFolder: "",
		initialized:   false,
	}
}

// Initialize implements engine.Engine. The YAML unmarshal path validates the
// configuration, so an initialized engine always carries a usable config.
func (b *BacktestEngineV1) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &b.config); err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	b.log = log
	b.initialized = true

	b.log.Debug("backtest engine initialized",
		zap.String("initial_capital", b.config.InitialCapital.String()),
		zap.Int("max_positions", b.config.MaxPositions),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(source datasource.DataSource) error {
	b.datasource = source

	return nil
}

// SetJournal implements engine.Engine.
func (b *BacktestEngineV1) SetJournal(writer *journal.Writer) error {
	if writer == nil {
		writer = journal.Discard()
	}

	b.journal = writer

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	return b.config.GenerateSchemaJSON()
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, request engine.Request, onProgress optional.Option[engine.OnProgressCallback]) (*engine.Result, error) {
	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	if request.Strategy == nil {
		return nil, errors.New(errors.ErrCodeNoStrategy, "no strategy provided")
	}

	start, end := b.effectiveRange(request.Start, request.End)

	bars, err := b.datasource.GetBars(ctx, request.Asset, start, end, request.Interval)
	if err != nil {
		return nil, err
	}

	signals, err := generateSignals(request.Strategy, bars)
	if err != nil {
		return nil, err
	}

	b.journal.Section("Starting backtest for " + request.Asset.Symbol)
	b.journal.Metric("Initial Capital", b.config.InitialCapital.InexactFloat64())
	b.journal.Writef("Fetched %d bars of data", len(bars))

	state := newRunState(b.config, b.journal)

	for i, bar := range bars {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "backtest cancelled")
		}

		b.processBar(state, bar, signals[i])
		state.markEquity(bar)

		if onProgress.IsSome() {
			onProgress.Unwrap()(i+1, len(bars))
		}
	}

	// force-close whatever is still open against the last bar
	if len(bars) > 0 {
		last := bars[len(bars)-1]
		state.closeSymbol(last.Symbol, decimal.NewFromFloat(last.Close), last.Time)
	}

	return b.finishRun(state, request.Asset.Symbol+"_"+request.Strategy.Name())
}

// processBar handles one bar: the signal first, then the involuntary exits.
func (b *BacktestEngineV1) processBar(state *runState, bar types.MarketData, signal types.Signal) {
	switch signal.Type {
	case types.SignalTypeBuy:
		result := state.openPosition(signal, bar)
		if !result.Opened {
			b.log.Debug("open skipped",
				zap.String("symbol", bar.Symbol),
				zap.Time("time", bar.Time),
				zap.String("reason", string(result.Reason)),
			)
		}
	case types.SignalTypeSell:
		state.closeSymbol(bar.Symbol, decimal.NewFromFloat(bar.Close), bar.Time)
	case types.SignalTypeHold:
	}

	state.applyExits(bar)
}

// finishRun computes metrics, journals the summary and writes results.
func (b *BacktestEngineV1) finishRun(state *runState, runName string) (*engine.Result, error) {
	performance := metrics.Calculate(state.closed, state.equity)

	b.journal.Section("Final Results")
	b.journal.Metric("Final Capital", state.cash.InexactFloat64())
	b.journal.Metric("Total Trades", performance.TotalTrades)
	b.journal.Metric("Win Rate", performance.WinRate.InexactFloat64())
	b.journal.Metric("Max Drawdown", performance.MaxDrawdown.InexactFloat64())

	result := &engine.Result{
		Metrics:       performance,
		EquityCurve:   state.equity,
		ResultsFolder: "",
	}

	if b.resultsFolder != "" {
		folder, err := b.writeResults(state, performance, runName)
		if err != nil {
			return nil, err
		}

		result.ResultsFolder = folder
	}

	return result, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestConfigError, "engine is not initialized")
	}

	if b.datasource == nil {
		return errors.New(errors.ErrCodeNoDatasource, "no datasource set")
	}

	return nil
}

// effectiveRange narrows the requested period by the configured one.
func (b *BacktestEngineV1) effectiveRange(start time.Time, end time.Time) (time.Time, time.Time) {
	if b.config.StartTime.IsSome() && b.config.StartTime.Unwrap().After(start) {
		start = b.config.StartTime.Unwrap()
	}

	if b.config.EndTime.IsSome() && b.config.EndTime.Unwrap().Before(end) {
		end = b.config.EndTime.Unwrap()
	}

	return start, end
}

// generateSignals runs the strategy and enforces the 1:1 bar alignment.
func generateSignals(strat strategy.Strategy, bars []types.MarketData) ([]types.Signal, error) {
	signals, err := strat.GenerateSignals(bars)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeSignalGenerationFailed, "strategy %s failed", strat.Name())
	}

	if len(signals) != len(bars) {
		return nil, errors.Newf(errors.ErrCodeSignalMisaligned,
			"strategy %s returned %d signals for %d bars", strat.Name(), len(signals), len(bars))
	}

	return signals, nil
}
