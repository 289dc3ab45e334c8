package backtest

// session.go — estado mutable de una ejecución.
//
// Un session pertenece a una única llamada a Run: balance, posiciones abiertas,
// cooldowns, ledger y curva de equity viven aquí y nunca se comparten, así que
// varias ejecuciones pueden correr en paralelo sin coordinación.

import (
	"math"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

type session struct {
	cfg       domain.BacktestConfig
	matcher   *Matcher
	rng       RandomSource
	balance   float64
	positions []domain.OpenPosition
	cd        *cooldowns
	trades    []domain.Trade
	equity    []domain.EquityPoint
	aoi       *domain.OutcomeWindow
}

func newSession(cfg domain.BacktestConfig, rng RandomSource) *session {
	return &session{
		cfg:     cfg,
		matcher: NewMatcher(cfg.Rules, cfg.Mode, rng),
		rng:     rng,
		balance: cfg.StartingBalance,
		cd:      newCooldowns(),
		aoi:     domain.NewOutcomeWindow(cfg.AOIWindow),
	}
}

// fallbackCandidate es el primer snapshot con TTC <= umbral del fallback.
type fallbackCandidate struct {
	at  time.Time
	ctx domain.MarketContext
}

// replayMarket procesa un mercado completo: snapshots, fallback, liquidación,
// punto de equity y reset de cooldowns. El AOI debe estar ya actualizado con
// los outcomes anteriores al mercado.
func (s *session) replayMarket(m domain.MarketRecord, snaps []domain.PriceSnapshot) {
	aoi := s.aoi.Value()
	primaryFired := false
	var candidate *fallbackCandidate

	for _, snap := range snaps {
		if !snap.Usable() {
			continue
		}
		ctx := domain.NewMarketContext(m, snap, aoi)
		now := snap.RecordedAt

		if s.cfg.Fallback != nil && candidate == nil && ctx.TimeToClose <= s.cfg.FallbackTTC {
			candidate = &fallbackCandidate{at: now, ctx: ctx}
		}

		if s.cd.blocked(now) {
			continue
		}

		// EXCLUSIVE: el primer BUY ejecutado corta la resolución del snapshot.
		s.matcher.Each(m.Slug, ctx, now, s.cd, func(match Match) bool {
			if !s.buy(m, match.Rule, match.Outcome, ctx, now) {
				return true
			}
			primaryFired = true
			s.cd.record(s.cfg.Mode, match.Rule, now)
			return s.cfg.Mode != domain.ModeExclusive
		})
	}

	if !primaryFired && candidate != nil && !s.cd.blocked(candidate.at) {
		s.runFallback(m, *candidate)
	}

	s.settle(m)
	s.equity = append(s.equity, domain.EquityPoint{Timestamp: m.EndTime, Equity: s.balance})
	s.cd.reset()
}

// runFallback ejecuta la regla de fallback en el snapshot candidato.
// Su cooldown siempre extiende el bloqueo compartido, sea cual sea el modo.
func (s *session) runFallback(m domain.MarketRecord, c fallbackCandidate) {
	fb := *s.cfg.Fallback
	if !fb.Enabled || !fb.MatchesSlug(m.Slug) {
		return
	}
	side := fb.Action.Outcome
	if fb.IsRandom() {
		side = draw(fb.Random.UpRatio, s.rng)
	}
	if s.buy(m, fb, side, c.ctx, c.at) {
		s.cd.block(c.at, fb.Cooldown)
	}
}

// buy intenta abrir una posición. Devuelve false si la señal se descarta:
// acción SELL, cantidad 0 o balance insuficiente. No es un error.
func (s *session) buy(m domain.MarketRecord, r domain.TradingRule, side domain.Side, ctx domain.MarketContext, at time.Time) bool {
	if r.Action.Side != domain.OrderBuy {
		return false
	}
	price := ctx.PriceFor(side)
	if price <= 0 || price >= 1 {
		return false
	}
	qty := math.Floor(r.Action.Amount / price)
	if qty <= 0 {
		return false
	}
	cost := domain.BuyCost(price, qty, s.cfg.FeeRate)
	if cost > s.balance {
		return false
	}

	s.balance -= cost
	s.trades = append(s.trades, domain.Trade{
		Type:        domain.TradeBuy,
		MarketID:    m.ID,
		MarketSlug:  m.Slug,
		Side:        side,
		Price:       price,
		Quantity:    qty,
		Fee:         domain.OrderFee(price, qty, s.cfg.FeeRate),
		Total:       cost,
		RuleID:      r.ID,
		RuleName:    r.Name,
		Timestamp:   at,
		TimeToClose: ctx.TimeToClose,
	})
	s.positions = append(s.positions, domain.OpenPosition{
		MarketID:   m.ID,
		MarketSlug: m.Slug,
		Side:       side,
		Quantity:   qty,
		EntryPrice: price,
		RuleID:     r.ID,
		RuleName:   r.Name,
	})
	return true
}

// settle liquida todas las posiciones del mercado: payout binario 0 o quantity.
// El fee ya se cobró en la entrada; aquí solo entra en el cálculo del P&L.
func (s *session) settle(m domain.MarketRecord) {
	winner := m.Outcome.WinningSide()
	for _, p := range s.positions {
		var payout, settlePrice float64
		if p.Side == winner {
			payout = p.Quantity
			settlePrice = 1
		}
		pnl := payout - p.EntryPrice*p.Quantity - domain.OrderFee(p.EntryPrice, p.Quantity, s.cfg.FeeRate)

		s.balance += payout
		s.trades = append(s.trades, domain.Trade{
			Type:       domain.TradeSettle,
			MarketID:   p.MarketID,
			MarketSlug: p.MarketSlug,
			Side:       p.Side,
			Price:      settlePrice,
			Quantity:   p.Quantity,
			Total:      payout,
			PnL:        pnl,
			RuleID:     p.RuleID,
			RuleName:   p.RuleName,
			Timestamp:  m.EndTime,
		})
	}
	s.positions = s.positions[:0]
}
