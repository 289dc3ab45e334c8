package ports

import (
	"context"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// MarketProvider obtiene mercados up/down ya resueltos desde Gamma.
type MarketProvider interface {
	// FetchMarketBySlug devuelve el mercado con ese slug. Outcome queda
	// OutcomeUnresolved si aún no hay ganador.
	FetchMarketBySlug(ctx context.Context, slug string) (domain.MarketRecord, error)
}

// PriceHistoryProvider reconstruye snapshots de precio de un mercado pasado.
type PriceHistoryProvider interface {
	FetchSnapshots(ctx context.Context, m domain.MarketRecord) ([]domain.PriceSnapshot, error)
}

// BookProvider obtiene orderbooks del CLOB usando el endpoint batch.
type BookProvider interface {
	// FetchOrderBooks devuelve los orderbooks para los token_ids dados.
	FetchOrderBooks(ctx context.Context, tokenIDs []string) (map[string]domain.OrderBook, error)
}
