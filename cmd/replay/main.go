package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polyreplay/config"
	"github.com/alejandrodnm/polyreplay/internal/adapters/notify"
	"github.com/alejandrodnm/polyreplay/internal/adapters/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	rulesPath := flag.String("rules", "", "path to rules file (overrides config)")
	fromFlag := flag.String("from", "", "replay window start (RFC3339 or YYYY-MM-DD, default: to - 24h)")
	toFlag := flag.String("to", "", "replay window end, exclusive (default: now)")
	sync := flag.Bool("sync", false, "import markets from Gamma for the window before replaying")
	syncOnly := flag.Bool("sync-only", false, "import markets and exit")
	collect := flag.Bool("collect", false, "record live order book snapshots until interrupted")
	batch := flag.Bool("batch", false, "run every configured batch variant and compare")
	save := flag.Bool("save", false, "persist results to storage")
	show := flag.String("show", "", "print a saved run by id and exit")
	maxTrades := flag.Int("trades", 20, "ledger entries to print (0 = none)")
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
	if *rulesPath != "" {
		cfg.Backtest.RulesFile = *rulesPath
	}
	setupLogger(cfg.Log)

	from, to, err := parseWindow(*fromFlag, *toFlag, time.Now().UTC())
	if err != nil {
		slog.Error("invalid window", "err", err)
		os.Exit(1)
	}

	slog.Info("polyreplay starting",
		"config", *configPath,
		"rules", cfg.Backtest.RulesFile,
		"from", from,
		"to", to,
		"sync", *sync || *syncOnly,
		"batch", *batch,
	)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *show != "" {
		if err := showRun(ctx, store, *show, *maxTrades); err != nil {
			slog.Error("show run failed", "err", err, "run_id", *show)
			os.Exit(1)
		}
		return
	}

	if *collect {
		if err := runCollect(ctx, cfg, store); err != nil {
			slog.Error("collector failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if *sync || *syncOnly {
		if err := runSync(ctx, cfg, store, from, to); err != nil {
			slog.Error("sync failed", "err", err)
			os.Exit(1)
		}
		if *syncOnly {
			return
		}
	}

	reporter := notify.NewConsole(*maxTrades)
	opts := runOptions{save: *save}

	if *batch {
		err = runBatch(ctx, cfg, store, reporter, from, to, opts)
	} else {
		err = runBacktest(ctx, cfg, store, reporter, from, to, opts)
	}
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	slog.Info("polyreplay finished cleanly")
}

// parseWindow interpreta -from/-to. Sin -from, la ventana es el día anterior a -to.
func parseWindow(fromStr, toStr string, now time.Time) (time.Time, time.Time, error) {
	to := now
	if toStr != "" {
		t, err := parseTimeFlag(toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("-to: %w", err)
		}
		to = t
	}
	from := to.Add(-24 * time.Hour)
	if fromStr != "" {
		t, err := parseTimeFlag(fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("-from: %w", err)
		}
		from = t
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from %s must be before to %s", from, to)
	}
	return from, to, nil
}

func parseTimeFlag(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: want RFC3339 or YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

func setupLogger(cfg config.LogConfig) {
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
