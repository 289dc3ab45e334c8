package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// MarketDataSource lee el histórico que alimenta un backtest.
type MarketDataSource interface {
	// LoadMarkets devuelve los mercados cuyo inicio está en [from, to), por inicio asc.
	LoadMarkets(ctx context.Context, from, to time.Time) ([]domain.MarketRecord, error)

	// LoadSnapshots devuelve los snapshots de los mercados dados, indexados por marketID.
	LoadSnapshots(ctx context.Context, marketIDs []string) (map[string][]domain.PriceSnapshot, error)

	// LoadOutcomes devuelve los outcomes resueltos con inicio anterior a before.
	LoadOutcomes(ctx context.Context, before time.Time) ([]domain.OutcomeRecord, error)
}

// MarketWriter persiste mercados, outcomes y snapshots importados.
type MarketWriter interface {
	UpsertMarkets(ctx context.Context, markets []domain.MarketRecord) error
	UpsertOutcomes(ctx context.Context, outcomes []domain.OutcomeRecord) error
	InsertSnapshots(ctx context.Context, snaps []domain.PriceSnapshot) error
}

// ResultStore persiste los resultados de cada ejecución.
type ResultStore interface {
	// SaveResult guarda resumen, ledger y curva de equity en una transacción.
	SaveResult(ctx context.Context, runID string, label string, res domain.BacktestResult) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
