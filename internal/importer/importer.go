package importer

// importer.go — trae de Gamma los mercados up/down de 5 minutos ya resueltos
// y los guarda como markets + outcomes para que el backtest tenga historia.
// Con un PriceHistoryProvider también reconstruye los snapshots desde el CLOB.
//
// Los slugs siguen el patrón <prefix>-<unix inicio>, con inicios alineados al
// intervalo del mercado (300s). Se escribe cada FlushEvery slugs, así una
// importación de meses no acumula todo en memoria y un Ctrl-C conserva lo
// que ya se descargó.

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
	defaultInterval   = 5 * time.Minute
	defaultFlushEvery = 50
)

// Config controla qué serie de mercados se importa.
type Config struct {
	SlugPrefix string        // ej. "btc-updown-5m"
	Interval   time.Duration // duración de cada mercado
	FlushEvery int           // slugs por escritura; 0 = 50
}

// Summary resume una importación.
type Summary struct {
	Requested int
	Resolved  int
	Open      int
	Missing   int
	Failed    int
	Snapshots int // snapshots guardados
}

// Importer orquesta provider → writer.
type Importer struct {
	cfg      Config
	provider ports.MarketProvider
	writer   ports.MarketWriter
	history  ports.PriceHistoryProvider // opcional
}

// New crea un Importer con todas las dependencias inyectadas.
func New(cfg Config, provider ports.MarketProvider, writer ports.MarketWriter) *Importer {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = defaultFlushEvery
	}
	return &Importer{cfg: cfg, provider: provider, writer: writer}
}

// WithHistory activa la importación de snapshots para los mercados resueltos.
func (im *Importer) WithHistory(h ports.PriceHistoryProvider) *Importer {
	im.history = h
	return im
}

// Starts devuelve los inicios alineados al intervalo dentro de [from, to).
func (im *Importer) Starts(from, to time.Time) []time.Time {
	step := int64(im.cfg.Interval / time.Second)
	first := from.Unix()
	if rem := first % step; rem != 0 {
		first += step - rem
	}

	var starts []time.Time
	for ts := first; ts < to.Unix(); ts += step {
		starts = append(starts, time.Unix(ts, 0).UTC())
	}
	return starts
}

// Slug construye el slug del mercado que empieza en start.
func (im *Importer) Slug(start time.Time) string {
	return fmt.Sprintf("%s-%d", im.cfg.SlugPrefix, start.Unix())
}

// Import descarga los mercados de [from, to) y persiste los que existan.
// Un slug que falla no aborta la importación; solo se cuenta y se loguea.
// Si se cancela ctx, lo ya descargado se escribe antes de devolver el error.
func (im *Importer) Import(ctx context.Context, from, to time.Time) (Summary, error) {
	starts := im.Starts(from, to)
	sum := Summary{Requested: len(starts)}

	var b batch
	for i, start := range starts {
		if err := ctx.Err(); err != nil {
			// el ctx ya está cancelado: la última escritura usa uno sin cancelación
			if ferr := im.flush(context.WithoutCancel(ctx), &b, &sum); ferr != nil {
				return sum, fmt.Errorf("importer.Import: %w", errors.Join(err, ferr))
			}
			return sum, fmt.Errorf("importer.Import: %w", err)
		}

		im.fetch(ctx, im.Slug(start), start, &b, &sum)

		if (i+1)%im.cfg.FlushEvery == 0 {
			if err := im.flush(ctx, &b, &sum); err != nil {
				return sum, fmt.Errorf("importer.Import: %w", err)
			}
		}
	}

	if err := im.flush(ctx, &b, &sum); err != nil {
		return sum, fmt.Errorf("importer.Import: %w", err)
	}

	slog.Info("import complete",
		"prefix", im.cfg.SlugPrefix,
		"requested", sum.Requested,
		"resolved", sum.Resolved,
		"open", sum.Open,
		"missing", sum.Missing,
		"failed", sum.Failed,
		"snapshots", sum.Snapshots,
	)
	return sum, nil
}

// batch acumula lo descargado desde la última escritura.
type batch struct {
	markets  []domain.MarketRecord
	outcomes []domain.OutcomeRecord
	snaps    []domain.PriceSnapshot
}

// fetch descarga un slug y lo agrega al batch.
func (im *Importer) fetch(ctx context.Context, slug string, start time.Time, b *batch, sum *Summary) {
	m, err := im.provider.FetchMarketBySlug(ctx, slug)
	if errors.Is(err, polymarket.ErrMarketNotFound) {
		sum.Missing++
		slog.Debug("market not found", "slug", slug)
		return
	}
	if err != nil {
		sum.Failed++
		slog.Warn("fetch market failed", "slug", slug, "err", err)
		return
	}

	if m.StartTime.IsZero() {
		m.StartTime = start
	}
	if m.Slug == "" {
		m.Slug = slug
	}
	if m.ID == "" {
		m.ID = m.Slug
	}
	if m.EndTime.IsZero() {
		m.EndTime = m.StartTime.Add(im.cfg.Interval)
	}
	b.markets = append(b.markets, m)

	if !m.Outcome.Resolved() {
		sum.Open++
		return
	}
	sum.Resolved++
	b.outcomes = append(b.outcomes, domain.OutcomeRecord{Slug: m.Slug, StartTime: m.StartTime, Outcome: m.Outcome})

	if im.history == nil {
		return
	}
	ms, err := im.history.FetchSnapshots(ctx, m)
	if err != nil {
		slog.Warn("fetch price history failed", "slug", m.Slug, "err", err)
		return
	}
	b.snaps = append(b.snaps, ms...)
}

// flush escribe el batch y lo vacía. Markets antes que snapshots.
func (im *Importer) flush(ctx context.Context, b *batch, sum *Summary) error {
	if len(b.markets) == 0 {
		return nil
	}
	if err := im.writer.UpsertMarkets(ctx, b.markets); err != nil {
		return err
	}
	if err := im.writer.UpsertOutcomes(ctx, b.outcomes); err != nil {
		return err
	}
	if err := im.writer.InsertSnapshots(ctx, b.snaps); err != nil {
		return err
	}
	sum.Snapshots += len(b.snaps)
	slog.Debug("import batch written", "markets", len(b.markets), "snapshots", len(b.snaps))
	*b = batch{}
	return nil
}
