package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/greg-czaplicki/coinbot-alpha/config"
	"github.com/greg-czaplicki/coinbot-alpha/internal/adapters/audit"
	"github.com/greg-czaplicki/coinbot-alpha/internal/adapters/binance"
	"github.com/greg-czaplicki/coinbot-alpha/internal/adapters/notify"
	"github.com/greg-czaplicki/coinbot-alpha/internal/adapters/polymarket"
	"github.com/greg-czaplicki/coinbot-alpha/internal/domain"
	"github.com/greg-czaplicki/coinbot-alpha/internal/engine"
	"github.com/greg-czaplicki/coinbot-alpha/internal/model"
	"github.com/greg-czaplicki/coinbot-alpha/internal/ports"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	slog.Info("coinbot starting",
		"config", *configPath,
		"tick", cfg.TickInterval(),
		"model", cfg.Model.Variant,
		"threshold_bps", cfg.Model.ThresholdBps,
		"notional_usd", cfg.Paper.NotionalUSD,
	)

	estimator, err := model.New(cfg.Model.Variant, cfg.Model.SigmaAnnual)
	if err != nil {
		slog.Error("failed to build estimator", "err", err)
		os.Exit(1)
	}

	jsonlSink, err := audit.NewJSONLSink(cfg.Audit.JSONLPath)
	if err != nil {
		slog.Error("failed to open audit log", "err", err, "path", cfg.Audit.JSONLPath)
		os.Exit(1)
	}
	sqliteSink, err := audit.NewSQLiteSink(cfg.Audit.DSN)
	if err != nil {
		slog.Error("failed to open audit store", "err", err, "dsn", cfg.Audit.DSN)
		os.Exit(1)
	}
	sink := audit.NewFanout(jsonlSink, sqliteSink)
	defer sink.Close()

	client := polymarket.NewClient(cfg.API.CLOBBase)
	stream := polymarket.NewStream(cfg.API.CLOBWSBase, cfg.StreamStaleAfter())
	spot := binance.NewSpotClient(cfg.API.BinanceBase, cfg.API.BinanceSymbol)
	feed := engine.NewReferenceFeed(spot, cfg.TickInterval(), cfg.SpotMaxAge())

	state := engine.NewRiskState()
	ledger := engine.NewLedger(cfg.Paper.NotionalUSD)
	risk := engine.NewManager(state, engine.Limits{
		StopLossUSD:       cfg.Risk.StopLossUSD,
		TakeProfitUSD:     cfg.Risk.TakeProfitUSD,
		MaxCumulativeLoss: cfg.Risk.MaxCumulativeLossUSD,
		Cooldown:          cfg.SignalCooldown(),
	})
	collector := engine.NewCollector(cfg.Alerts.MaxRejectRate, cfg.Alerts.MaxP95Ms)
	edge := engine.NewEdgeEngine(estimator, cfg.Model.ThresholdBps)

	specs := []domain.SeriesSpec{
		{
			Series:     domain.SeriesFiveMin,
			SlugPrefix: polymarket.FamilyPrefix(cfg.Series.FiveMinSeedSlug),
			SeedSlug:   cfg.Series.FiveMinSeedSlug,
			MinHold:    cfg.FiveMinHold(),
		},
		{
			Series:     domain.SeriesFifteenMin,
			SlugPrefix: polymarket.FamilyPrefix(cfg.Series.FifteenMinSeedSlug),
			SeedSlug:   cfg.Series.FifteenMinSeedSlug,
			MinHold:    cfg.FifteenMinHold(),
		},
	}

	var pipelines []*engine.Pipeline
	for _, spec := range specs {
		pipelines = append(pipelines, engine.NewPipeline(engine.PipelineOpts{
			Spec:           spec,
			Resolver:       engine.NewResolver(client, spec, cfg.MarketRefresh()),
			Stream:         stream,
			Feed:           feed,
			Edge:           edge,
			Risk:           risk,
			State:          state,
			Ledger:         ledger,
			Sink:           sink,
			Collector:      collector,
			TickInterval:   cfg.TickInterval(),
			FatalStaleness: cfg.FatalStaleness(),
		}))
	}

	bot := engine.NewEngine(pipelines, stream, feed, ledger, state, collector, sink, cfg.TelemetryInterval())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bot.Run(ctx)

	var notifier ports.Notifier = notify.NewConsole()
	positions, realized, unrealized := bot.Summary()
	notifier.PrintSummary(positions, realized, unrealized)

	if state.Tripped() {
		slog.Warn("coinbot stopped with kill switch active", "reason", state.Reason())
		return
	}
	slog.Info("coinbot stopped cleanly")
}

func setupLogger(cfg config.Log) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
