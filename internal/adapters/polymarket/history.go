package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const (
	pricesHistoryPath = "/prices-history"
	historyFidelity   = 1 // minutos por punto
)

// ErrNoToken se devuelve cuando el mercado no trae token CLOB del outcome Up.
var ErrNoToken = errors.New("market has no yes token")

// FetchSnapshots reconstruye los snapshots de un mercado a partir de la serie
// de precios del token Up. El CLOB solo da precio, así que se guarda como mid.
// Implementa ports.PriceHistoryProvider.
func (c *Client) FetchSnapshots(ctx context.Context, m domain.MarketRecord) ([]domain.PriceSnapshot, error) {
	if m.YesTokenID == "" {
		return nil, fmt.Errorf("clob.FetchSnapshots %s: %w", m.Slug, ErrNoToken)
	}

	q := url.Values{}
	q.Set("market", m.YesTokenID)
	q.Set("startTs", fmt.Sprintf("%d", m.StartTime.Unix()))
	q.Set("endTs", fmt.Sprintf("%d", m.EndTime.Unix()))
	q.Set("fidelity", fmt.Sprintf("%d", historyFidelity))
	u := fmt.Sprintf("%s%s?%s", c.clobBase, pricesHistoryPath, q.Encode())

	var resp pricesHistoryResponse
	if err := c.get(ctx, c.history, u, &resp); err != nil {
		return nil, fmt.Errorf("clob.FetchSnapshots %s: %w", m.Slug, err)
	}
	return mapPriceHistory(m, resp.History), nil
}

// mapPriceHistory descarta puntos fuera de [start, end) y precios fuera de (0, 1).
func mapPriceHistory(m domain.MarketRecord, points []pricePoint) []domain.PriceSnapshot {
	snaps := make([]domain.PriceSnapshot, 0, len(points))
	for _, p := range points {
		at := time.Unix(p.T, 0).UTC()
		if at.Before(m.StartTime) || !at.Before(m.EndTime) {
			continue
		}
		if p.P <= 0 || p.P >= 1 {
			continue
		}
		snaps = append(snaps, domain.PriceSnapshot{
			MarketID:   m.ID,
			RecordedAt: at,
			MidYes:     p.P,
		})
	}
	return snaps
}
