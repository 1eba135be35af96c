package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/aggregator"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/history"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/logger"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/replay"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/server"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/strategy"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/strategy/script"
	"github.com/aimerfeng/aegisquant-hybrid-sub000/internal/types"
)

func main() {
	cmd := &cli.Command{
		Name:  "replay",
		Usage: "Replay historical bars through trading strategies",
		Commands: []*cli.Command{
			runCommand(),
			serveCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Run a full replay and write a summary",
		Action: runAction,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Path to the CSV bar file",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Rule strategy YAML file (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "script",
				Aliases: []string{"s"},
				Usage:   "Script strategy file (repeatable)",
			},
			&cli.StringFlag{
				Name:  "replay-config",
				Usage: "Replay session YAML config file",
			},
			&cli.FloatFlag{
				Name:  "initial-capital",
				Usage: "Starting account balance",
				Value: 10000,
			},
			&cli.FloatFlag{
				Name:  "trade-size",
				Usage: "Quantity per fill",
				Value: 1,
			},
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Aggregation mode (first_signal, majority_vote, unanimous, weighted_vote)",
				Value:   string(aggregator.ModeFirstSignal),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Summary output file (YAML)",
				Value:   "replay_result.yaml",
			},
		},
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	appLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLogger.Sync()

	config, err := loadReplayConfig(cmd)
	if err != nil {
		return err
	}

	loader, err := history.NewDuckDBLoader(appLogger)
	if err != nil {
		return err
	}
	defer loader.Close()

	dataPath := cmd.String("data")

	series, err := loader.LoadCSV(dataPath)
	if err != nil {
		return err
	}

	agg, err := buildAggregator(cmd, appLogger)
	if err != nil {
		return err
	}

	driver, err := replay.NewDriver(config, series.Bars(), agg, appLogger)
	if err != nil {
		return err
	}
	defer driver.Close()

	agg.StartAll()

	bar := progressbar.Default(int64(driver.Len()))
	bar.Describe(fmt.Sprintf("Replaying %s", filepath.Base(dataPath)))

	progress := func(current, total int) {
		_ = bar.Set(current)
	}

	if err := driver.RunAll(optional.Some(progress)); err != nil {
		return err
	}

	summary, err := driver.Summary()
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if err := types.WriteReplaySummary(output, summary); err != nil {
		return err
	}

	appLogger.Info("replay complete",
		zap.Int("trades", summary.TotalTrades),
		zap.Float64("ending_equity", summary.EndingEquity),
		zap.Float64("return_pct", summary.TotalReturnPct),
		zap.Float64("max_drawdown_pct", summary.MaxDrawdownPct),
		zap.Float64("sharpe", summary.SharpeRatio),
		zap.String("output", output),
	)

	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Expose strategy management over HTTP",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			appLogger, err := logger.NewLogger()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer appLogger.Sync()

			agg := aggregator.New(appLogger)
			srv := server.New(agg, appLogger)
			addr := cmd.String("listen")

			appLogger.Info("control api listening", zap.String("addr", addr))

			return http.ListenAndServe(addr, srv.Handler())
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Listen address",
				Value:   ":8080",
			},
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print configuration JSON schemas",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			switch cmd.String("kind") {
			case "strategy":
				schema, err := strategy.RuleConfig{}.GenerateSchemaJSON()
				if err != nil {
					return err
				}

				fmt.Println(schema)
			case "replay":
				schema, err := replay.GenerateSchemaJSON()
				if err != nil {
					return err
				}

				fmt.Println(schema)
			default:
				return fmt.Errorf("kind must be \"strategy\" or \"replay\"")
			}

			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Schema kind: strategy or replay",
				Value: "strategy",
			},
		},
	}
}

func loadReplayConfig(cmd *cli.Command) (replay.Config, error) {
	if path := cmd.String("replay-config"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return replay.Config{}, fmt.Errorf("failed to read replay config: %w", err)
		}

		return replay.ParseConfig(string(content))
	}

	config := replay.DefaultConfig()
	config.InitialCapital = cmd.Float("initial-capital")
	config.TradeSize = cmd.Float("trade-size")

	return config, nil
}

func buildAggregator(cmd *cli.Command, appLogger *logger.Logger) (*aggregator.Aggregator, error) {
	agg := aggregator.New(appLogger)

	mode, err := aggregator.ParseMode(cmd.String("mode"))
	if err != nil {
		return nil, err
	}

	if err := agg.SetMode(mode); err != nil {
		return nil, err
	}

	for _, path := range cmd.StringSlice("config") {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read strategy config %s: %w", path, err)
		}

		strat, err := strategy.LoadRuleStrategy(string(content), appLogger)
		if err != nil {
			return nil, err
		}

		if _, err := agg.Add(strat); err != nil {
			return nil, err
		}
	}

	for _, path := range cmd.StringSlice("script") {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read script %s: %w", path, err)
		}

		strat, err := script.Load(string(content), appLogger)
		if err != nil {
			return nil, err
		}

		if violations := strat.Validate(); len(violations) > 0 {
			for _, v := range violations {
				appLogger.Error("script validation failed",
					zap.String("path", path),
					zap.String("violation", v.String()),
				)
			}

			return nil, fmt.Errorf("script %s failed validation", path)
		}

		if _, err := agg.Add(strat); err != nil {
			return nil, err
		}
	}

	if len(agg.Handles()) == 0 {
		return nil, fmt.Errorf("at least one strategy is required (--config or --script)")
	}

	return agg, nil
}
