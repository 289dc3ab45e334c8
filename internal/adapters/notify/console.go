package notify

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/olekukonko/tablewriter"
)

const defaultMaxTrades = 20

// Console implementa ports.Reporter.
type Console struct {
	out       io.Writer
	maxTrades int // trades del ledger que se imprimen (los últimos)
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(maxTrades int) *Console {
	return NewConsoleWriter(os.Stdout, maxTrades)
}

// NewConsoleWriter crea un reporter sobre cualquier writer (tests).
func NewConsoleWriter(w io.Writer, maxTrades int) *Console {
	if maxTrades < 0 {
		maxTrades = defaultMaxTrades
	}
	return &Console{out: w, maxTrades: maxTrades}
}

// Report imprime el resumen, el desglose por regla y los últimos trades.
func (c *Console) Report(_ context.Context, label string, res domain.BacktestResult) error {
	st := res.Stats
	cfg := res.Config

	fmt.Fprintf(c.out, "\n=== BACKTEST %s — %d markets, mode %s, aoi %d ===\n",
		label, res.MarketsProcessed, cfg.Mode, cfg.AOIWindow)

	c.printSummary(cfg, st)

	if len(st.ByRule) > 0 {
		c.printRules(st.ByRule)
	}

	if c.maxTrades > 0 && len(res.Trades) > 0 {
		c.printTrades(res.Trades)
	}

	verdict := "NO TRADES"
	switch {
	case st.SettledTrades == 0:
	case st.TotalPnL > 0:
		verdict = "PROFITABLE"
	default:
		verdict = "NOT PROFITABLE"
	}
	fmt.Fprintf(c.out, "\n  VEREDICTO: %s  (%+.2f USDC, %+.2f%%)\n\n", verdict, st.TotalPnL, st.TotalPnLPct*100)
	return nil
}

// PrintBatch compara varias ejecuciones en una sola tabla.
func (c *Console) PrintBatch(labels []string, results []domain.BacktestResult) {
	if len(results) == 0 {
		fmt.Fprintln(c.out, "\n  No backtest results available.")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Config", "Trades", "WinRate", "PnL", "PF", "MaxDD", "Sharpe", "Final")
	for i, r := range results {
		st := r.Stats
		table.Append(
			fmt.Sprintf("%d", i+1),
			labels[i],
			fmt.Sprintf("%d", st.SettledTrades),
			fmt.Sprintf("%.1f%%", st.WinRate*100),
			fmt.Sprintf("$%.2f", st.TotalPnL),
			profitFactorLabel(st.ProfitFactor),
			fmt.Sprintf("$%.2f", st.MaxDrawdown),
			fmt.Sprintf("%.2f", st.SharpeRatio),
			fmt.Sprintf("$%.2f", st.FinalBalance),
		)
	}
	table.Render()
}

// printSummary imprime las métricas agregadas.
func (c *Console) printSummary(cfg domain.BacktestConfig, st domain.BacktestStats) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Starting balance", fmt.Sprintf("$%.2f", cfg.StartingBalance))
	table.Append("Final balance", fmt.Sprintf("$%.2f", st.FinalBalance))
	table.Append("Total P&L", fmt.Sprintf("$%.2f (%.2f%%)", st.TotalPnL, st.TotalPnLPct*100))
	table.Append("Settled trades", fmt.Sprintf("%d (W:%d L:%d)", st.SettledTrades, st.Wins, st.Losses))
	table.Append("Win rate", fmt.Sprintf("%.1f%%", st.WinRate*100))
	table.Append("Avg win / loss", fmt.Sprintf("$%.2f / $%.2f", st.AvgWin, st.AvgLoss))
	table.Append("Profit factor", profitFactorLabel(st.ProfitFactor))
	table.Append("Max drawdown", fmt.Sprintf("$%.2f (%.2f%%)", st.MaxDrawdown, st.MaxDrawdownPct*100))
	table.Append("Sharpe (annual.)", fmt.Sprintf("%.2f", st.SharpeRatio))
	table.Append("Fees paid", fmt.Sprintf("$%.4f", st.TotalFees))
	table.Render()
}

// printRules imprime el desglose por regla.
func (c *Console) printRules(rules []domain.RuleStats) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Rule", "Trades", "W", "L", "PnL")
	for _, r := range rules {
		name := r.RuleName
		if name == "" {
			name = r.RuleID
		}
		table.Append(
			truncate(name, 30),
			fmt.Sprintf("%d", r.Trades),
			fmt.Sprintf("%d", r.Wins),
			fmt.Sprintf("%d", r.Losses),
			fmt.Sprintf("$%.2f", r.PnL),
		)
	}
	table.Render()
}

// printTrades imprime los últimos maxTrades trades del ledger.
func (c *Console) printTrades(trades []domain.Trade) {
	shown := trades
	if len(shown) > c.maxTrades {
		shown = trades[len(trades)-c.maxTrades:]
	}

	fmt.Fprintf(c.out, "\n  Last %d of %d ledger entries:\n", len(shown), len(trades))
	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Type", "Market", "Side", "Price", "Qty", "Total", "PnL", "Rule")
	for _, t := range shown {
		pnl := ""
		if t.Type == domain.TradeSettle {
			pnl = fmt.Sprintf("%+.2f", t.PnL)
		}
		table.Append(
			t.Timestamp.UTC().Format("01-02 15:04:05"),
			string(t.Type),
			truncate(t.MarketSlug, 28),
			string(t.Side),
			fmt.Sprintf("%.4f", t.Price),
			fmt.Sprintf("%.0f", t.Quantity),
			fmt.Sprintf("$%.2f", t.Total),
			pnl,
			truncate(t.RuleName, 20),
		)
	}
	table.Render()
}

func profitFactorLabel(pf float64) string {
	if math.IsInf(pf, 1) {
		return "INF"
	}
	return fmt.Sprintf("%.2f", pf)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
