// Package collector graba snapshots del book YES del mercado up/down en curso.
//
// Cada tick resuelve qué mercado está abierto (el inicio se alinea al
// intervalo), lo registra si es nuevo y guarda best bid, best ask y mid.
// Los outcomes no se graban acá: llegan después con el importer.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/alejandrodnm/polyreplay/internal/ports"
)

const (
	defaultInterval  = 5 * time.Minute
	defaultPollEvery = 10 * time.Second
)

// Config controla qué serie se sigue y cada cuánto se mira el book.
type Config struct {
	SlugPrefix string
	Interval   time.Duration // duración de cada mercado
	PollEvery  time.Duration
}

// Collector orquesta markets + books → writer.
type Collector struct {
	cfg     Config
	markets ports.MarketProvider
	books   ports.BookProvider
	writer  ports.MarketWriter
	now     func() time.Time

	current      domain.MarketRecord // mercado seguido; vacío hasta el primer tick
	currentStart time.Time
}

// New crea un Collector con todas las dependencias inyectadas.
func New(cfg Config, markets ports.MarketProvider, books ports.BookProvider, writer ports.MarketWriter) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = defaultPollEvery
	}
	return &Collector{
		cfg:     cfg,
		markets: markets,
		books:   books,
		writer:  writer,
		now:     time.Now,
	}
}

// WithClock reemplaza el reloj. Solo para tests.
func (c *Collector) WithClock(now func() time.Time) *Collector {
	c.now = now
	return c
}

// Run graba un snapshot por tick hasta que se cancela ctx.
// Un tick fallido se loguea y no detiene el loop.
func (c *Collector) Run(ctx context.Context) error {
	slog.Info("collector starting",
		"prefix", c.cfg.SlugPrefix,
		"poll_every", c.cfg.PollEvery,
	)

	ticker := time.NewTicker(c.cfg.PollEvery)
	defer ticker.Stop()

	var recorded int
	for {
		if _, ok, err := c.Tick(ctx); err != nil {
			slog.Error("collector tick failed", "err", err)
		} else if ok {
			recorded++
		}

		select {
		case <-ctx.Done():
			slog.Info("collector stopped", "snapshots", recorded)
			return nil
		case <-ticker.C:
		}
	}
}

// Tick graba un snapshot del mercado abierto ahora. Devuelve false sin error
// cuando no hay nada que grabar (mercado aún no listado, book vacío).
func (c *Collector) Tick(ctx context.Context) (domain.PriceSnapshot, bool, error) {
	now := c.now().UTC()

	m, ok, err := c.marketAt(ctx, now)
	if err != nil || !ok {
		return domain.PriceSnapshot{}, false, err
	}

	books, err := c.books.FetchOrderBooks(ctx, []string{m.YesTokenID})
	if err != nil {
		return domain.PriceSnapshot{}, false, fmt.Errorf("collector.Tick: fetch book: %w", err)
	}
	ob, found := books[m.YesTokenID]
	if !found {
		slog.Debug("no book for token", "slug", m.Slug, "token", m.YesTokenID)
		return domain.PriceSnapshot{}, false, nil
	}

	snap := ob.Snapshot(m.ID, now)
	if !snap.Usable() {
		slog.Debug("unusable book skipped", "slug", m.Slug, "bid", snap.BestBidYes, "ask", snap.BestAskYes)
		return domain.PriceSnapshot{}, false, nil
	}
	if err := c.writer.InsertSnapshots(ctx, []domain.PriceSnapshot{snap}); err != nil {
		return domain.PriceSnapshot{}, false, fmt.Errorf("collector.Tick: %w", err)
	}

	slog.Debug("snapshot recorded",
		"slug", m.Slug,
		"mid", snap.MidYes,
		"spread", snap.Spread(),
		"ttc", domain.TimeToClose(m.EndTime, now),
	)
	return snap, true, nil
}

// marketAt devuelve el mercado que contiene at, pidiéndolo a Gamma solo
// cuando cambia el intervalo.
func (c *Collector) marketAt(ctx context.Context, at time.Time) (domain.MarketRecord, bool, error) {
	step := int64(c.cfg.Interval / time.Second)
	start := time.Unix(at.Unix()-at.Unix()%step, 0).UTC()
	if c.current.Slug != "" && c.currentStart.Equal(start) {
		return c.current, true, nil
	}

	slug := fmt.Sprintf("%s-%d", c.cfg.SlugPrefix, start.Unix())
	m, err := c.markets.FetchMarketBySlug(ctx, slug)
	if errors.Is(err, polymarket.ErrMarketNotFound) {
		slog.Debug("market not listed yet", "slug", slug)
		return domain.MarketRecord{}, false, nil
	}
	if err != nil {
		return domain.MarketRecord{}, false, fmt.Errorf("collector.marketAt %s: %w", slug, err)
	}
	if m.YesTokenID == "" {
		return domain.MarketRecord{}, false, fmt.Errorf("collector.marketAt %s: %w", slug, polymarket.ErrNoToken)
	}

	if m.Slug == "" {
		m.Slug = slug
	}
	if m.ID == "" {
		m.ID = m.Slug
	}
	if m.StartTime.IsZero() {
		m.StartTime = start
	}
	if m.EndTime.IsZero() {
		m.EndTime = start.Add(c.cfg.Interval)
	}
	if err := c.writer.UpsertMarkets(ctx, []domain.MarketRecord{m}); err != nil {
		return domain.MarketRecord{}, false, fmt.Errorf("collector.marketAt %s: %w", slug, err)
	}

	slog.Info("tracking market", "slug", m.Slug, "end", m.EndTime)
	c.current, c.currentStart = m, start
	return m, true, nil
}
