package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/ports"
)

// LoadInput lee del data source todo lo necesario para reproducir [from, to).
// Los outcomes se cargan hasta `to` para que el AOI tenga historia previa a
// `from`; el engine garantiza que ningún mercado vea su propio outcome.
func LoadInput(ctx context.Context, src ports.MarketDataSource, from, to time.Time) (Input, error) {
	markets, err := src.LoadMarkets(ctx, from, to)
	if err != nil {
		return Input{}, fmt.Errorf("backtest.LoadInput: markets: %w", err)
	}

	ids := make([]string, len(markets))
	for i, m := range markets {
		ids[i] = m.ID
	}
	snaps, err := src.LoadSnapshots(ctx, ids)
	if err != nil {
		return Input{}, fmt.Errorf("backtest.LoadInput: snapshots: %w", err)
	}

	outcomes, err := src.LoadOutcomes(ctx, to)
	if err != nil {
		return Input{}, fmt.Errorf("backtest.LoadInput: outcomes: %w", err)
	}

	total := 0
	for _, s := range snaps {
		total += len(s)
	}
	slog.Debug("backtest input loaded",
		"markets", len(markets),
		"snapshots", total,
		"outcomes", len(outcomes),
	)

	return Input{Markets: markets, Snapshots: snaps, Outcomes: outcomes}, nil
}
