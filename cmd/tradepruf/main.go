package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/rxtech-lab/tradepruf/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/tradepruf/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/tradepruf/internal/datasource"
	"github.com/rxtech-lab/tradepruf/internal/journal"
	"github.com/rxtech-lab/tradepruf/internal/strategy"
	"github.com/rxtech-lab/tradepruf/internal/types"
	"github.com/rxtech-lab/tradepruf/internal/version"
	"github.com/rxtech-lab/tradepruf/pkg/marketdata"
	"github.com/rxtech-lab/tradepruf/pkg/marketdata/provider"
)

const defaultConfigYAML = `
initial_capital: 100000
position_size_fraction: 0.1
max_positions: 5
min_leverage: 1
max_leverage: 1
spread_fee_rate: 0
margin_call_ratio: 0.2
`

var dateLayouts = cli.TimestampConfig{Layouts: []string{"2006-01-02"}}

func main() {
	// .env is optional, flags and environment win over it
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:    "tradepruf",
		Usage:   "Backtest trading strategies over historical bars",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			backtestCommand(),
			portfolioCommand(),
			downloadCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run one strategy against one asset",
		Flags: append(runFlags(),
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"S"},
				Usage:    "Asset symbol to trade",
				Required: true,
			},
		),
		Action: backtestAction,
	}
}

func portfolioCommand() *cli.Command {
	return &cli.Command{
		Name:  "portfolio",
		Usage: "Run one strategy across several assets over a shared capital pool",
		Flags: append(runFlags(),
			&cli.StringSliceFlag{
				Name:     "symbols",
				Aliases:  []string{"S"},
				Usage:    "Asset symbols to trade",
				Required: true,
			},
		),
		Action: portfolioAction,
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to the parquet or CSV bar file",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Usage:   "Strategy name (sma, ema, rsi, macd, bollinger, atr, futures)",
			Value:   "sma",
		},
		&cli.TimestampFlag{
			Name:     "start",
			Usage:    "Start date in `YYYY-MM-DD` format",
			Required: true,
			Config:   dateLayouts,
		},
		&cli.TimestampFlag{
			Name:   "end",
			Usage:  "End date in `YYYY-MM-DD` format, defaults to today",
			Value:  time.Now(),
			Config: dateLayouts,
		},
		&cli.StringFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "Bar interval (1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w)",
			Value:   "1d",
		},
		&cli.StringFlag{
			Name:    "asset-type",
			Usage:   "Asset type (stock, etf, forex, crypto, commodity, index, future)",
			Value:   "stock",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the engine YAML configuration",
		},
		&cli.StringFlag{
			Name:  "cache",
			Usage: "Path to a SQLite bar cache, reused across runs",
		},
		&cli.StringFlag{
			Name:  "results",
			Usage: "Directory to write run results into",
		},
		&cli.StringFlag{
			Name:  "journal",
			Usage: "Directory to write the run journal into",
		},
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	backtester, cleanup, err := setupEngine(cmd)
	if err != nil {
		return err
	}

	defer cleanup()

	strat, err := strategyByName(cmd.String("strategy"))
	if err != nil {
		return err
	}

	request := engine.Request{
		Strategy: strat,
		Asset: types.Asset{
			Symbol: cmd.String("symbol"),
			Type:   types.AssetType(cmd.String("asset-type")),
		},
		Start:    cmd.Timestamp("start"),
		End:      cmd.Timestamp("end"),
		Interval: datasource.Interval(cmd.String("interval")),
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", request.Asset.Symbol)),
		progressbar.OptionShowCount(),
	)

	result, err := backtester.Run(ctx, request, optional.Some(progressCallback(bar)))
	if err != nil {
		return err
	}

	bar.Finish()
	fmt.Println()
	printSummary(result)

	return nil
}

func portfolioAction(ctx context.Context, cmd *cli.Command) error {
	backtester, cleanup, err := setupEngine(cmd)
	if err != nil {
		return err
	}

	defer cleanup()

	symbols := cmd.StringSlice("symbols")
	assetType := types.AssetType(cmd.String("asset-type"))

	assets := make([]types.Asset, 0, len(symbols))
	strategies := make(map[string]strategy.Strategy, len(symbols))

	for _, symbol := range symbols {
		strat, err := strategyByName(cmd.String("strategy"))
		if err != nil {
			return err
		}

		assets = append(assets, types.Asset{Symbol: symbol, Type: assetType})
		strategies[symbol] = strat
	}

	request := engine.PortfolioRequest{
		Strategies: strategies,
		Assets:     assets,
		Start:      cmd.Timestamp("start"),
		End:        cmd.Timestamp("end"),
		Interval:   datasource.Interval(cmd.String("interval")),
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Backtesting portfolio"),
		progressbar.OptionShowCount(),
	)

	result, err := backtester.RunPortfolio(ctx, request, optional.Some(progressCallback(bar)))
	if err != nil {
		return err
	}

	bar.Finish()
	fmt.Println()
	printSummary(result)

	return nil
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "Download historical bars into a parquet file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"S"},
				Usage:    "Asset symbol to download",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Data provider (polygon, binance)",
				Value:   "binance",
			},
			&cli.StringFlag{
				Name:  "asset-type",
				Usage: "Asset type (stock, etf, forex, crypto, commodity, index, future)",
				Value: "crypto",
			},
			&cli.TimestampFlag{
				Name:     "start",
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config:   dateLayouts,
			},
			&cli.TimestampFlag{
				Name:   "end",
				Usage:  "End date in `YYYY-MM-DD` format, defaults to today",
				Value:  time.Now(),
				Config: dateLayouts,
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Bar interval (1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w)",
				Value:   "1d",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory",
				Value:   "data",
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	fetcher, err := marketdata.NewFetcher(marketdata.FetcherConfig{
		Provider:      provider.ProviderType(cmd.String("provider")),
		OutputDir:     cmd.String("output"),
		PolygonAPIKey: os.Getenv("POLYGON_API_KEY"),
	})
	if err != nil {
		return err
	}

	request := marketdata.FetchRequest{
		Asset: types.Asset{
			Symbol: cmd.String("symbol"),
			Type:   types.AssetType(cmd.String("asset-type")),
		},
		Start:    cmd.Timestamp("start"),
		End:      cmd.Timestamp("end"),
		Interval: datasource.Interval(cmd.String("interval")),
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", request.Asset.Symbol)),
	)

	path, err := fetcher.Fetch(ctx, request, func(current float64, total float64, _ string) {
		if total > 0 {
			bar.Set(int(current / total * 100))
		}
	})
	if err != nil {
		return err
	}

	bar.Finish()
	fmt.Printf("\nDownloaded %s to %s\n", request.Asset.Symbol, path)

	return nil
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the engine configuration",
		Action: func(_ context.Context, _ *cli.Command) error {
			backtester := enginev1.NewBacktestEngineV1()

			schema, err := backtester.GetConfigSchema()
			if err != nil {
				return err
			}

			fmt.Println(schema)

			return nil
		},
	}
}

// setupEngine builds an initialized engine with its datasource, journal and
// results folder wired from the shared run flags. The returned cleanup closes
// everything.
func setupEngine(cmd *cli.Command) (engine.Engine, func(), error) {
	configYAML := defaultConfigYAML

	if path := cmd.String("config"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		configYAML = string(content)
	}

	backtester := enginev1.NewBacktestEngineV1()
	if err := backtester.Initialize(configYAML); err != nil {
		return nil, nil, err
	}

	duck, err := datasource.NewDuckDB(nil)
	if err != nil {
		return nil, nil, err
	}

	if err := duck.Load(cmd.String("data")); err != nil {
		duck.Close()

		return nil, nil, err
	}

	var source datasource.DataSource = duck

	if path := cmd.String("cache"); path != "" {
		cached, err := datasource.NewCache(duck, path, 0, nil)
		if err != nil {
			duck.Close()

			return nil, nil, err
		}

		source = cached
	}

	if err := backtester.SetDataSource(source); err != nil {
		source.Close()

		return nil, nil, err
	}

	writer := journal.Discard()

	if dir := cmd.String("journal"); dir != "" {
		writer, err = journal.NewWriter(dir)
		if err != nil {
			source.Close()

			return nil, nil, err
		}
	}

	if err := backtester.SetJournal(writer); err != nil {
		source.Close()

		return nil, nil, err
	}

	if folder := cmd.String("results"); folder != "" {
		if err := backtester.SetResultsFolder(folder); err != nil {
			source.Close()

			return nil, nil, err
		}
	}

	cleanup := func() {
		writer.Close()
		source.Close()
	}

	return backtester, cleanup, nil
}

// strategyByName builds a strategy with its conventional default parameters.
func strategyByName(name string) (strategy.Strategy, error) {
	switch name {
	case "sma":
		return strategy.NewSMACrossover(20, 50)
	case "ema":
		return strategy.NewEMA(12, 26)
	case "rsi":
		return strategy.NewRSI(14, 30, 70)
	case "macd":
		return strategy.NewMACD(12, 26, 9)
	case "bollinger":
		return strategy.NewBollingerBands(20, 2.0)
	case "atr":
		return strategy.NewATRTrailingStop(14, 3.0)
	case "futures":
		return strategy.NewFutures(strategy.DefaultFuturesConfig())
	default:
		return nil, fmt.Errorf("unknown strategy: %s", name)
	}
}

func progressCallback(bar *progressbar.ProgressBar) engine.OnProgressCallback {
	return func(current int, total int) {
		bar.ChangeMax(total)
		bar.Set(current)
	}
}

var (
	summaryTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	summaryLabelStyle = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("8"))
	summaryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	gainStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func printSummary(result *engine.Result) {
	metrics := result.Metrics

	returnStyle := gainStyle
	if metrics.TotalReturn.IsNegative() {
		returnStyle = lossStyle
	}

	rows := []string{
		summaryTitleStyle.Render("Backtest Results"),
		summaryLabelStyle.Render("Total Trades") + fmt.Sprintf("%d (%d won / %d lost)",
			metrics.TotalTrades, metrics.WinningTrades, metrics.LosingTrades),
		summaryLabelStyle.Render("Win Rate") + fmt.Sprintf("%.1f%%", metrics.WinRate.InexactFloat64()*100),
		summaryLabelStyle.Render("Total Return") + returnStyle.Render(fmt.Sprintf("%.2f%%", metrics.TotalReturn.InexactFloat64())),
		summaryLabelStyle.Render("Annual Return") + fmt.Sprintf("%.2f%%", metrics.AnnualReturn.InexactFloat64()),
		summaryLabelStyle.Render("Max Drawdown") + fmt.Sprintf("%.2f%%", metrics.MaxDrawdown.InexactFloat64()),
		summaryLabelStyle.Render("Volatility") + fmt.Sprintf("%.2f%%", metrics.Volatility.InexactFloat64()),
		summaryLabelStyle.Render("Sharpe Ratio") + fmt.Sprintf("%.2f", metrics.SharpeRatio.InexactFloat64()),
		summaryLabelStyle.Render("Avg Win") + fmt.Sprintf("$%.2f", metrics.AvgWin.InexactFloat64()),
		summaryLabelStyle.Render("Avg Loss") + fmt.Sprintf("$%.2f", metrics.AvgLoss.InexactFloat64()),
	}

	if result.ResultsFolder != "" {
		rows = append(rows, summaryLabelStyle.Render("Results")+result.ResultsFolder)
	}

	fmt.Println(summaryBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
}
