package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/polyreplay/config"
	"github.com/alejandrodnm/polyreplay/internal/adapters/notify"
	"github.com/alejandrodnm/polyreplay/internal/adapters/storage"
	"github.com/alejandrodnm/polyreplay/internal/backtest"
	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/alejandrodnm/polyreplay/internal/ports"
	"github.com/google/uuid"
)

// reconcileTolerance es la diferencia máxima aceptada entre el balance final
// y el que se deriva del ledger.
const reconcileTolerance = 1e-9

type runOptions struct {
	save bool
}

// loadRun arma la configuración del motor y carga el histórico de la ventana.
func loadRun(ctx context.Context, cfg *config.Config, src ports.MarketDataSource, from, to time.Time) (domain.BacktestConfig, backtest.Input, error) {
	rs, err := config.LoadRules(cfg.Backtest.RulesFile)
	if err != nil {
		return domain.BacktestConfig{}, backtest.Input{}, err
	}
	btCfg, err := cfg.Domain(rs)
	if err != nil {
		return domain.BacktestConfig{}, backtest.Input{}, err
	}

	in, err := backtest.LoadInput(ctx, src, from, to)
	if err != nil {
		return domain.BacktestConfig{}, backtest.Input{}, err
	}
	slog.Info("input loaded",
		"markets", len(in.Markets),
		"with_snapshots", len(in.Snapshots),
		"outcomes", len(in.Outcomes),
		"rules", len(btCfg.Rules),
	)
	return btCfg, in, nil
}

// runBacktest ejecuta una configuración siguiendo el stream de eventos.
func runBacktest(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, reporter ports.Reporter, from, to time.Time, opts runOptions) error {
	btCfg, in, err := loadRun(ctx, cfg, store, from, to)
	if err != nil {
		return err
	}

	engine, err := backtest.New(btCfg, nil)
	if err != nil {
		return err
	}

	var res *domain.BacktestResult
	for ev := range engine.Stream(ctx, in) {
		switch ev.Kind {
		case backtest.EventProgress:
			slog.Debug("replay progress", "pct", fmt.Sprintf("%.0f", ev.Percent))
		case backtest.EventDone:
			res = ev.Result
		case backtest.EventFailed:
			return ev.Err
		}
	}
	if res == nil {
		return fmt.Errorf("run: %w", ctx.Err())
	}

	label := string(engine.Config().Mode)
	return finish(ctx, store, reporter, label, *res, opts)
}

// runBatch ejecuta todas las variantes del batch en paralelo y las compara.
func runBatch(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, reporter *notify.Console, from, to time.Time, opts runOptions) error {
	base, in, err := loadRun(ctx, cfg, store, from, to)
	if err != nil {
		return err
	}

	labels, configs := cfg.Variants(base)
	results := backtest.RunBatch(ctx, in, configs, cfg.Backtest.Workers)

	var okLabels []string
	var okResults []domain.BacktestResult
	for _, r := range results {
		label := labels[r.Index]
		if r.Err != nil {
			slog.Warn("variant failed", "label", label, "err", r.Err)
			continue
		}
		if err := finish(ctx, store, reporter, label, r.Result, opts); err != nil {
			return err
		}
		okLabels = append(okLabels, label)
		okResults = append(okResults, r.Result)
	}

	reporter.PrintBatch(okLabels, okResults)
	return nil
}

// finish verifica el ledger, imprime el reporte y, si se pide, persiste el run.
func finish(ctx context.Context, store ports.ResultStore, reporter ports.Reporter, label string, res domain.BacktestResult, opts runOptions) error {
	if diff := domain.Reconcile(res.Config.StartingBalance, res.Trades, res.Stats.FinalBalance); math.Abs(diff) > reconcileTolerance {
		slog.Warn("ledger does not reconcile", "label", label, "diff", diff)
	}

	if err := reporter.Report(ctx, label, res); err != nil {
		slog.Warn("reporter error", "err", err)
	}

	if !opts.save {
		return nil
	}
	runID := uuid.NewString()
	if err := store.SaveResult(ctx, runID, label, res); err != nil {
		return err
	}
	slog.Info("run saved", "run_id", runID, "label", label, "trades", len(res.Trades))
	return nil
}

// showRun imprime un run guardado.
func showRun(ctx context.Context, store *storage.SQLiteStorage, runID string, maxTrades int) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	trades, err := store.GetRunTrades(ctx, runID)
	if err != nil {
		return err
	}

	res := domain.BacktestResult{
		Config: domain.BacktestConfig{
			StartingBalance: run.StartingBalance,
			AOIWindow:       run.AOIWindow,
			Mode:            run.Mode,
		},
		Stats:            domain.ComputeStats(trades, run.StartingBalance, nil),
		Trades:           trades,
		MarketsProcessed: run.MarketsProcessed,
	}
	// la curva no se relee: drawdown, sharpe y balance final salen del resumen
	res.Stats.MaxDrawdown = run.MaxDrawdown
	res.Stats.MaxDrawdownPct = run.MaxDrawdownPct
	res.Stats.SharpeRatio = run.Sharpe
	res.Stats.FinalBalance = run.FinalBalance

	label := fmt.Sprintf("%s (%s, %s)", run.Label, run.ID, run.CreatedAt.Format(time.DateTime))
	return notify.NewConsole(maxTrades).Report(ctx, label, res)
}
