package engine

import (
	"context"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/tradepruf/internal/backtest/engine"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/pkg/errors"
)

// assetSeries is the fetched data of one portfolio member, indexed by bar
// timestamp for the replay loop.
type assetSeries struct {
	asset    types.Asset
	bars     map[int64]types.MarketData
	signals  map[int64]types.Signal
	lastBar  types.MarketData
	hasFinal bool
}

// RunPortfolio implements engine.Engine. All assets draw on one shared cash
// pool; bars are replayed over the sorted union of every asset's timestamps,
// and assets without a bar at a given timestamp simply sit that step out.
func (b *BacktestEngineV1) RunPortfolio(ctx context.Context, request engine.PortfolioRequest, onProgress optional.Option[engine.OnProgressCallback]) (*engine.Result, error) {
	if err := b.preRunCheck(); err != nil {
		return nil, err
	}

	if len(request.Assets) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "portfolio has no assets")
	}

	b.journal.Section("Starting portfolio backtest")
	b.journal.Metric("Assets", len(request.Assets))
	b.journal.Metric("Initial Capital", b.config.InitialCapital.InexactFloat64())

	start, end := b.effectiveRange(request.Start, request.End)

	series, timeline, err := b.fetchPortfolio(ctx, request, start, end)
	if err != nil {
		return nil, err
	}

	state := newRunState(b.config, b.journal)

	// seed the curve so drawdown measures from the starting capital
	state.equity = append(state.equity, types.EquityPoint{Time: timeline[0], Equity: b.config.InitialCapital})

	for i, timestamp := range timeline {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBacktestRunFailed, "portfolio backtest cancelled")
		}

		key := timestamp.UnixNano()
		prices := make(map[string]decimal.Decimal, len(series))

		for _, member := range series {
			bar, ok := member.bars[key]
			if !ok {
				continue
			}

			prices[member.asset.Symbol] = decimal.NewFromFloat(bar.Close)
			b.processBar(state, bar, member.signals[key])
		}

		state.markPortfolioEquity(timestamp, prices)

		if onProgress.IsSome() {
			onProgress.Unwrap()(i+1, len(timeline))
		}
	}

	// close every remaining position against its asset's final bar
	b.journal.Write("Closing remaining positions...")

	for _, member := range series {
		if !member.hasFinal {
			continue
		}

		state.closeSymbol(member.asset.Symbol, decimal.NewFromFloat(member.lastBar.Close), member.lastBar.Time)
	}

	return b.finishRun(state, "portfolio")
}

// fetchPortfolio loads bars and signals for every asset and builds the
// sorted union timeline.
func (b *BacktestEngineV1) fetchPortfolio(ctx context.Context, request engine.PortfolioRequest, start time.Time, end time.Time) ([]assetSeries, []time.Time, error) {
	series := make([]assetSeries, 0, len(request.Assets))
	timestampSet := make(map[int64]time.Time)

	for _, asset := range request.Assets {
		strat, ok := request.Strategies[asset.Symbol]
		if !ok {
			return nil, nil, errors.Newf(errors.ErrCodeNoStrategy, "no strategy for asset %s", asset.Symbol)
		}

		bars, err := b.datasource.GetBars(ctx, asset, start, end, request.Interval)
		if err != nil {
			return nil, nil, err
		}

		signals, err := generateSignals(strat, bars)
		if err != nil {
			return nil, nil, err
		}

		b.journal.Writef("Fetched %d bars for %s (%s)", len(bars), asset.Symbol, strat.Name())

		member := assetSeries{
			asset:    asset,
			bars:     make(map[int64]types.MarketData, len(bars)),
			signals:  make(map[int64]types.Signal, len(signals)),
			lastBar:  types.MarketData{},
			hasFinal: false,
		}

		for i, bar := range bars {
			key := bar.Time.UnixNano()
			member.bars[key] = bar
			member.signals[key] = signals[i]
			timestampSet[key] = bar.Time
		}

		if len(bars) > 0 {
			member.lastBar = bars[len(bars)-1]
			member.hasFinal = true
		}

		series = append(series, member)
	}

	if len(timestampSet) == 0 {
		return nil, nil, errors.New(errors.ErrCodeNoDataFound, "no bars found for any portfolio asset")
	}

	timeline := make([]time.Time, 0, len(timestampSet))
	for _, timestamp := range timestampSet {
		timeline = append(timeline, timestamp)
	}

	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Before(timeline[j]) })

	return series, timeline, nil
}
