package ports

import (
	"context"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// Reporter presenta el resultado de un backtest al usuario.
type Reporter interface {
	// Report imprime stats, desglose por regla y últimos trades.
	Report(ctx context.Context, label string, res domain.BacktestResult) error
}
