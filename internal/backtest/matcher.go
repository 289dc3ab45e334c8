package backtest

import (
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// RandomSource es la fuente uniforme [0,1) de las reglas RandomDecision.
// *rand.Rand de math/rand/v2 la implementa.
type RandomSource interface {
	Float64() float64
}

// Match es una regla que disparó en un snapshot, con su lado ya resuelto.
type Match struct {
	Rule    domain.TradingRule
	Outcome domain.Side
}

// cooldowns guarda el estado de cooldown de un mercado. Se resetea en cada
// frontera de mercado.
type cooldowns struct {
	lastFired    map[string]time.Time // INDEPENDENT: ruleID → último disparo
	blockedUntil time.Time            // bloqueo compartido (EXCLUSIVE y fallback)
}

func newCooldowns() *cooldowns {
	return &cooldowns{lastFired: make(map[string]time.Time)}
}

func (c *cooldowns) reset() {
	clear(c.lastFired)
	c.blockedUntil = time.Time{}
}

// blocked indica si el bloqueo compartido sigue activo en now.
func (c *cooldowns) blocked(now time.Time) bool {
	return now.Before(c.blockedUntil)
}

// ready indica si la regla salió de su cooldown individual.
func (c *cooldowns) ready(r domain.TradingRule, now time.Time) bool {
	last, ok := c.lastFired[r.ID]
	if !ok {
		return true
	}
	return now.Sub(last) >= r.Cooldown
}

// block extiende el bloqueo compartido hasta now + d.
func (c *cooldowns) block(now time.Time, d time.Duration) {
	if until := now.Add(d); until.After(c.blockedUntil) {
		c.blockedUntil = until
	}
}

// record actualiza el cooldown tras una compra ejecutada.
func (c *cooldowns) record(mode domain.Mode, r domain.TradingRule, now time.Time) {
	if mode == domain.ModeExclusive {
		c.block(now, r.Cooldown)
		return
	}
	c.lastFired[r.ID] = now
}

// Matcher evalúa las reglas habilitadas contra un snapshot.
type Matcher struct {
	rules []domain.TradingRule
	mode  domain.Mode
	rng   RandomSource
}

// NewMatcher crea un Matcher. Las reglas deshabilitadas se descartan aquí.
func NewMatcher(rules []domain.TradingRule, mode domain.Mode, rng RandomSource) *Matcher {
	enabled := make([]domain.TradingRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return &Matcher{rules: enabled, mode: mode, rng: rng}
}

// Each resuelve las reglas en orden de configuración y pasa cada match a fn.
// Si fn devuelve false no se resuelve ninguna regla más, así que las reglas
// que ya no pueden ejecutarse no consumen sorteos. El cooldown se consulta
// antes de evaluar por el mismo motivo.
func (m *Matcher) Each(slug string, ctx domain.MarketContext, now time.Time, cd *cooldowns, fn func(Match) bool) {
	if m.mode == domain.ModeExclusive && cd.blocked(now) {
		return
	}

	for _, r := range m.rules {
		if !r.MatchesSlug(slug) {
			continue
		}
		if m.mode == domain.ModeIndependent && !cd.ready(r, now) {
			continue
		}
		side, ok := resolve(r, ctx, m.rng)
		if !ok {
			continue
		}
		if !fn(Match{Rule: r, Outcome: side}) {
			return
		}
	}
}

// Match devuelve todas las reglas que disparan en este snapshot.
func (m *Matcher) Match(slug string, ctx domain.MarketContext, now time.Time, cd *cooldowns) []Match {
	var matches []Match
	m.Each(slug, ctx, now, cd, func(mt Match) bool {
		matches = append(matches, mt)
		return true
	})
	return matches
}

// resolve decide si la regla dispara y con qué lado.
func resolve(r domain.TradingRule, ctx domain.MarketContext, rng RandomSource) (domain.Side, bool) {
	if r.IsRandom() {
		if ctx.TimeToClose > r.Random.TriggerAtTimeToClose {
			return "", false
		}
		return draw(r.Random.UpRatio, rng), true
	}
	if !domain.EvaluateAll(r.ConditionMode, r.Conditions, ctx) {
		return "", false
	}
	return r.Action.Outcome, true
}

// draw elige YES si el sorteo uniforme cae por debajo de upRatio.
func draw(upRatio float64, rng RandomSource) domain.Side {
	if rng.Float64() < upRatio {
		return domain.SideYes
	}
	return domain.SideNo
}
