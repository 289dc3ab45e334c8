package domain

import "math"

// MarketsPerYear es el factor de anualización: 288 mercados de 5 min por día.
const MarketsPerYear = 288 * 365

// ComputeStats calcula todas las métricas de una ejecución de una sola vez.
// Win/loss, P&L y profit factor salen solo de los SETTLE; drawdown y Sharpe
// de la curva de equity.
func ComputeStats(trades []Trade, startingBalance float64, curve []EquityPoint) BacktestStats {
	s := BacktestStats{
		TotalTrades:  len(trades),
		FinalBalance: startingBalance,
	}
	if len(curve) > 0 {
		s.FinalBalance = curve[len(curve)-1].Equity
	}

	var grossWin, grossLoss float64
	byRule := make(map[string]*RuleStats)
	var ruleOrder []string

	for _, t := range trades {
		s.TotalFees += t.Fee
		if t.Type != TradeSettle {
			continue
		}
		s.SettledTrades++
		s.TotalPnL += t.PnL

		rs, ok := byRule[t.RuleID]
		if !ok {
			rs = &RuleStats{RuleID: t.RuleID, RuleName: t.RuleName}
			byRule[t.RuleID] = rs
			ruleOrder = append(ruleOrder, t.RuleID)
		}
		rs.Trades++
		rs.PnL += t.PnL

		if t.PnL > 0 {
			s.Wins++
			rs.Wins++
			grossWin += t.PnL
		} else {
			s.Losses++
			rs.Losses++
			grossLoss += math.Abs(t.PnL)
		}
	}

	if s.SettledTrades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.SettledTrades)
	}
	if startingBalance > 0 {
		s.TotalPnLPct = s.TotalPnL / startingBalance
	}
	if s.Wins > 0 {
		s.AvgWin = grossWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss / float64(s.Losses)
	}
	s.ProfitFactor = profitFactor(grossWin, grossLoss)
	s.MaxDrawdown, s.MaxDrawdownPct = MaxDrawdown(curve)
	s.SharpeRatio = SharpeRatio(curve)

	for _, id := range ruleOrder {
		s.ByRule = append(s.ByRule, *byRule[id])
	}
	return s
}

func profitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossWin > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return grossWin / grossLoss
}

// MaxDrawdown recorre la curva una vez y devuelve la mayor caída desde un pico
// en valor absoluto y como fracción del pico en el que ocurrió.
func MaxDrawdown(curve []EquityPoint) (abs, pct float64) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := curve[0].Equity
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > abs {
			abs = dd
			if peak > 0 {
				pct = dd / peak
			}
		}
	}
	return abs, pct
}

// SharpeRatio anualiza media/desviación (poblacional) de los retornos por mercado.
// Se saltan los pasos con equity previa 0; devuelve 0 si la desviación es 0.
func SharpeRatio(curve []EquityPoint) float64 {
	returns := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(MarketsPerYear)
}

// Reconcile devuelve la diferencia entre el balance final y
// start + Σ SETTLE.Total − Σ BUY.Total. Debe ser ~0.
func Reconcile(startingBalance float64, trades []Trade, finalBalance float64) float64 {
	expected := startingBalance
	for _, t := range trades {
		switch t.Type {
		case TradeBuy:
			expected -= t.Total
		case TradeSettle:
			expected += t.Total
		}
	}
	return finalBalance - expected
}
