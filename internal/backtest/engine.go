package backtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// Input son los datos históricos de una ejecución. Se leen, nunca se modifican.
type Input struct {
	Markets   []domain.MarketRecord
	Snapshots map[string][]domain.PriceSnapshot // marketID → snapshots
	Outcomes  []domain.OutcomeRecord
}

// Validate detecta datos mal formados que invalidarían toda la ejecución.
func (in Input) Validate() error {
	seen := make(map[string]bool, len(in.Markets))
	for _, m := range in.Markets {
		if m.ID == "" {
			return fmt.Errorf("%w: market %q without id", domain.ErrInvalidConfig, m.Slug)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate market id %q", domain.ErrInvalidConfig, m.ID)
		}
		seen[m.ID] = true
		if m.EndTime.Before(m.StartTime) {
			return fmt.Errorf("%w: market %q ends before it starts", domain.ErrInvalidConfig, m.ID)
		}
	}
	return nil
}

// ProgressFunc recibe el porcentaje completado (0-100). No debe bloquear.
type ProgressFunc func(percent float64)

// Engine reproduce mercados históricos contra una configuración fija.
type Engine struct {
	cfg domain.BacktestConfig
	rng RandomSource
}

// New valida la configuración y crea un Engine. Si rng es nil, cada ejecución
// crea su propio generador PCG a partir de cfg.Seed (0 = semilla por tiempo).
func New(cfg domain.BacktestConfig, rng RandomSource) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest.New: %w", err)
	}
	return &Engine{cfg: cfg, rng: rng}, nil
}

// Config devuelve la configuración efectiva (con defaults).
func (e *Engine) Config() domain.BacktestConfig {
	return e.cfg
}

// Run ejecuta el replay completo. La cancelación del contexto se comprueba en
// cada frontera de mercado; un error nunca devuelve un resultado parcial.
func (e *Engine) Run(ctx context.Context, in Input, onProgress ProgressFunc) (domain.BacktestResult, error) {
	if err := in.Validate(); err != nil {
		return domain.BacktestResult{}, fmt.Errorf("backtest.Run: %w", err)
	}

	markets := resolvedMarkets(in.Markets)
	history := outcomeHistory(in.Outcomes, markets)
	s := newSession(e.cfg, e.random())

	start := time.Time{}
	if len(markets) > 0 {
		start = markets[0].StartTime
	}
	s.equity = append(s.equity, domain.EquityPoint{Timestamp: start, Equity: s.balance})

	next := 0
	lastReported := -1.0
	for i, m := range markets {
		if err := ctx.Err(); err != nil {
			return domain.BacktestResult{}, fmt.Errorf("backtest.Run: market %d/%d: %w", i+1, len(markets), err)
		}

		for next < len(history) && history[next].StartTime.Before(m.StartTime) {
			s.aoi.Push(history[next].Value())
			next++
		}

		s.replayMarket(m, sortedSnapshots(in.Snapshots[m.ID]))

		if onProgress != nil && (i+1)%e.cfg.ProgressEvery == 0 {
			lastReported = percent(i+1, len(markets))
			onProgress(lastReported)
		}
	}
	if onProgress != nil && lastReported < 100 {
		onProgress(100)
	}

	return domain.BacktestResult{
		Config:           e.cfg,
		Stats:            domain.ComputeStats(s.trades, e.cfg.StartingBalance, s.equity),
		Trades:           s.trades,
		EquityCurve:      s.equity,
		MarketsProcessed: len(markets),
	}, nil
}

func (e *Engine) random() RandomSource {
	if e.rng != nil {
		return e.rng
	}
	seed := e.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) * 100 / float64(total)
}

// resolvedMarkets filtra los mercados resueltos y los ordena por inicio.
func resolvedMarkets(all []domain.MarketRecord) []domain.MarketRecord {
	out := make([]domain.MarketRecord, 0, len(all))
	for _, m := range all {
		if m.Outcome.Resolved() {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// sortedSnapshots devuelve una copia ordenada por timestamp.
func sortedSnapshots(snaps []domain.PriceSnapshot) []domain.PriceSnapshot {
	out := make([]domain.PriceSnapshot, len(snaps))
	copy(out, snaps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out
}

// outcomeHistory une los OutcomeRecord con los outcomes de los mercados
// reproducidos que no tienen record propio, ordenados por inicio.
// Un mercado solo ve outcomes con inicio estrictamente anterior al suyo.
func outcomeHistory(records []domain.OutcomeRecord, markets []domain.MarketRecord) []domain.OutcomeRecord {
	bySlug := make(map[string]bool, len(records))
	out := make([]domain.OutcomeRecord, 0, len(records)+len(markets))
	for _, r := range records {
		if !r.Outcome.Resolved() {
			continue
		}
		bySlug[r.Slug] = true
		out = append(out, r)
	}
	for _, m := range markets {
		if bySlug[m.Slug] {
			continue
		}
		out = append(out, domain.OutcomeRecord{Slug: m.Slug, StartTime: m.StartTime, Outcome: m.Outcome})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
