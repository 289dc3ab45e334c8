package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// ErrRunNotFound se devuelve cuando no existe el run pedido.
var ErrRunNotFound = errors.New("backtest run not found")

// RunSummary es la fila de backtest_runs.
type RunSummary struct {
	ID               string
	Label            string
	CreatedAt        time.Time
	Mode             domain.Mode
	AOIWindow        int
	StartingBalance  float64
	FinalBalance     float64
	MarketsProcessed int
	TotalTrades      int
	Wins             int
	Losses           int
	WinRate          float64
	TotalPnL         float64
	ProfitFactor     float64
	MaxDrawdown      float64
	MaxDrawdownPct   float64
	Sharpe           float64
}

// SaveResult guarda el resumen, el ledger y la curva de equity de un run en
// una sola transacción: o se guarda todo o nada.
func (s *SQLiteStorage) SaveResult(ctx context.Context, runID, label string, res domain.BacktestResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveResult: begin tx: %w", err)
	}
	defer tx.Rollback()

	st := res.Stats
	// +Inf no es representable de forma portable: se guarda como NULL.
	var pf any
	if !math.IsInf(st.ProfitFactor, 0) {
		pf = st.ProfitFactor
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO backtest_runs
			(id, label, created_at, mode, aoi_window, starting_balance, final_balance,
			 markets_processed, total_trades, wins, losses, win_rate, total_pnl,
			 profit_factor, max_drawdown, max_drawdown_pct, sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, label, toMillis(time.Now()), string(res.Config.Mode), res.Config.AOIWindow,
		res.Config.StartingBalance, st.FinalBalance, res.MarketsProcessed, st.TotalTrades,
		st.Wins, st.Losses, st.WinRate, st.TotalPnL, pf, st.MaxDrawdown,
		st.MaxDrawdownPct, st.SharpeRatio,
	); err != nil {
		return fmt.Errorf("storage.SaveResult: insert run: %w", err)
	}

	tradeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO backtest_trades
			(run_id, seq, type, market_id, market_slug, side, price, quantity, fee,
			 total, pnl, rule_id, rule_name, ts, time_to_close)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveResult: prepare trades: %w", err)
	}
	defer tradeStmt.Close()

	for i, t := range res.Trades {
		if _, err := tradeStmt.ExecContext(ctx,
			runID, i, string(t.Type), t.MarketID, t.MarketSlug, string(t.Side),
			t.Price, t.Quantity, t.Fee, t.Total, t.PnL, t.RuleID, t.RuleName,
			toMillis(t.Timestamp), t.TimeToClose,
		); err != nil {
			return fmt.Errorf("storage.SaveResult: insert trade %d: %w", i, err)
		}
	}

	eqStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO backtest_equity (run_id, seq, ts, equity) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveResult: prepare equity: %w", err)
	}
	defer eqStmt.Close()

	for i, p := range res.EquityCurve {
		if _, err := eqStmt.ExecContext(ctx, runID, i, toMillis(p.Timestamp), p.Equity); err != nil {
			return fmt.Errorf("storage.SaveResult: insert equity %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveResult: commit: %w", err)
	}
	return nil
}

// GetRun devuelve el resumen de un run.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (RunSummary, error) {
	var r RunSummary
	var created int64
	var mode string
	var label sql.NullString
	var pf sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, created_at, mode, aoi_window, starting_balance, final_balance,
		       markets_processed, total_trades, wins, losses, win_rate, total_pnl,
		       profit_factor, max_drawdown, max_drawdown_pct, sharpe
		FROM backtest_runs WHERE id = ?`, runID,
	).Scan(
		&r.ID, &label, &created, &mode, &r.AOIWindow, &r.StartingBalance, &r.FinalBalance,
		&r.MarketsProcessed, &r.TotalTrades, &r.Wins, &r.Losses, &r.WinRate, &r.TotalPnL,
		&pf, &r.MaxDrawdown, &r.MaxDrawdownPct, &r.Sharpe,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("storage.GetRun: %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("storage.GetRun: %w", err)
	}

	r.Label = label.String
	r.CreatedAt = fromMillis(created)
	r.Mode = domain.Mode(mode)
	r.ProfitFactor = pf.Float64
	if !pf.Valid && r.Wins > 0 {
		r.ProfitFactor = math.Inf(1)
	}
	return r, nil
}

// GetRunTrades devuelve el ledger de un run en el orden original.
func (s *SQLiteStorage) GetRunTrades(ctx context.Context, runID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, market_id, market_slug, side, price, quantity, fee, total, pnl,
		       rule_id, rule_name, ts, time_to_close
		FROM backtest_trades WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRunTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var typ, side string
		var slug, ruleID, ruleName sql.NullString
		var ts int64
		if err := rows.Scan(&typ, &t.MarketID, &slug, &side, &t.Price, &t.Quantity,
			&t.Fee, &t.Total, &t.PnL, &ruleID, &ruleName, &ts, &t.TimeToClose); err != nil {
			return nil, fmt.Errorf("storage.GetRunTrades: scan row: %w", err)
		}
		t.Type = domain.TradeType(typ)
		t.Side = domain.Side(side)
		t.MarketSlug = slug.String
		t.RuleID = ruleID.String
		t.RuleName = ruleName.String
		t.Timestamp = fromMillis(ts)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
