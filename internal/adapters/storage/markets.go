package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// snapshotBatch limita los IDs por query IN (...) para no pasar el máximo de
// parámetros de SQLite.
const snapshotBatch = 500

// LoadMarkets devuelve los mercados con inicio en [from, to), por inicio asc.
func (s *SQLiteStorage) LoadMarkets(ctx context.Context, from, to time.Time) ([]domain.MarketRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, start_time, end_time, outcome, volume, yes_token
		FROM markets
		WHERE start_time >= ? AND start_time < ?
		ORDER BY start_time ASC, id ASC
	`, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("storage.LoadMarkets: query: %w", err)
	}
	defer rows.Close()

	var markets []domain.MarketRecord
	for rows.Next() {
		var m domain.MarketRecord
		var start, end int64
		var outcome string
		if err := rows.Scan(&m.ID, &m.Slug, &start, &end, &outcome, &m.Volume, &m.YesTokenID); err != nil {
			return nil, fmt.Errorf("storage.LoadMarkets: scan row: %w", err)
		}
		m.StartTime = fromMillis(start)
		m.EndTime = fromMillis(end)
		m.Outcome = domain.ParseOutcome(outcome)
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

// LoadSnapshots devuelve los snapshots de los mercados dados, ordenados por tiempo.
func (s *SQLiteStorage) LoadSnapshots(ctx context.Context, marketIDs []string) (map[string][]domain.PriceSnapshot, error) {
	result := make(map[string][]domain.PriceSnapshot, len(marketIDs))

	for i := 0; i < len(marketIDs); i += snapshotBatch {
		end := min(i+snapshotBatch, len(marketIDs))
		batch := marketIDs[i:end]

		args := make([]any, len(batch))
		for j, id := range batch {
			args[j] = id
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")

		rows, err := s.db.QueryContext(ctx, `
			SELECT market_id, recorded_at, mid_yes, best_bid_yes, best_ask_yes
			FROM price_snapshots
			WHERE market_id IN (`+placeholders+`)
			ORDER BY market_id, recorded_at ASC, id ASC
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("storage.LoadSnapshots: query: %w", err)
		}

		for rows.Next() {
			var snap domain.PriceSnapshot
			var at int64
			var mid sql.NullFloat64
			if err := rows.Scan(&snap.MarketID, &at, &mid, &snap.BestBidYes, &snap.BestAskYes); err != nil {
				rows.Close()
				return nil, fmt.Errorf("storage.LoadSnapshots: scan row: %w", err)
			}
			snap.RecordedAt = fromMillis(at)
			if mid.Valid {
				snap.MidYes = mid.Float64
			}
			result[snap.MarketID] = append(result[snap.MarketID], snap)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("storage.LoadSnapshots: rows: %w", err)
		}
		rows.Close()
	}

	return result, nil
}

// LoadOutcomes devuelve los outcomes resueltos con inicio anterior a before.
func (s *SQLiteStorage) LoadOutcomes(ctx context.Context, before time.Time) ([]domain.OutcomeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT slug, start_time, outcome
		FROM outcomes
		WHERE start_time < ?
		ORDER BY start_time ASC
	`, toMillis(before))
	if err != nil {
		return nil, fmt.Errorf("storage.LoadOutcomes: query: %w", err)
	}
	defer rows.Close()

	var out []domain.OutcomeRecord
	for rows.Next() {
		var r domain.OutcomeRecord
		var start int64
		var outcome string
		if err := rows.Scan(&r.Slug, &start, &outcome); err != nil {
			return nil, fmt.Errorf("storage.LoadOutcomes: scan row: %w", err)
		}
		r.StartTime = fromMillis(start)
		r.Outcome = domain.ParseOutcome(outcome)
		if r.Outcome.Resolved() {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

// UpsertMarkets inserta o actualiza mercados (outcome y volumen cambian al resolverse).
func (s *SQLiteStorage) UpsertMarkets(ctx context.Context, markets []domain.MarketRecord) error {
	if len(markets) == 0 {
		return nil
	}
	return s.inTx(ctx, "storage.UpsertMarkets", `
		INSERT INTO markets (id, slug, start_time, end_time, outcome, volume, yes_token)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug       = excluded.slug,
			start_time = excluded.start_time,
			end_time   = excluded.end_time,
			outcome    = excluded.outcome,
			volume     = excluded.volume,
			yes_token  = excluded.yes_token
	`, len(markets), func(i int) []any {
		m := markets[i]
		return []any{m.ID, m.Slug, toMillis(m.StartTime), toMillis(m.EndTime), string(m.Outcome), m.Volume, m.YesTokenID}
	})
}

// UpsertOutcomes inserta o actualiza outcomes por slug.
func (s *SQLiteStorage) UpsertOutcomes(ctx context.Context, outcomes []domain.OutcomeRecord) error {
	if len(outcomes) == 0 {
		return nil
	}
	return s.inTx(ctx, "storage.UpsertOutcomes", `
		INSERT INTO outcomes (slug, start_time, outcome)
		VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			start_time = excluded.start_time,
			outcome    = excluded.outcome
	`, len(outcomes), func(i int) []any {
		o := outcomes[i]
		return []any{o.Slug, toMillis(o.StartTime), string(o.Outcome)}
	})
}

// InsertSnapshots hace upsert por (market_id, recorded_at): reimportar la misma
// ventana reemplaza los precios en vez de duplicar observaciones.
// Un MidYes de 0 se guarda como NULL.
func (s *SQLiteStorage) InsertSnapshots(ctx context.Context, snaps []domain.PriceSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	return s.inTx(ctx, "storage.InsertSnapshots", `
		INSERT INTO price_snapshots (market_id, recorded_at, mid_yes, best_bid_yes, best_ask_yes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(market_id, recorded_at) DO UPDATE SET
			mid_yes      = excluded.mid_yes,
			best_bid_yes = excluded.best_bid_yes,
			best_ask_yes = excluded.best_ask_yes
	`, len(snaps), func(i int) []any {
		sn := snaps[i]
		var mid any
		if sn.MidYes != 0 {
			mid = sn.MidYes
		}
		return []any{sn.MarketID, toMillis(sn.RecordedAt), mid, sn.BestBidYes, sn.BestAskYes}
	})
}

// inTx prepara query una vez y la ejecuta n veces dentro de una transacción.
func (s *SQLiteStorage) inTx(ctx context.Context, op, query string, n int, args func(i int) []any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s: prepare: %w", op, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("%s: exec row %d: %w", op, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
