package main

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyreplay/config"
	"github.com/alejandrodnm/polyreplay/internal/adapters/polymarket"
	"github.com/alejandrodnm/polyreplay/internal/adapters/storage"
	"github.com/alejandrodnm/polyreplay/internal/collector"
	"github.com/alejandrodnm/polyreplay/internal/importer"
)

// runSync importa desde Gamma (y opcionalmente el CLOB) los mercados de la ventana.
func runSync(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, from, to time.Time) error {
	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	im := importer.New(importer.Config{
		SlugPrefix: cfg.Sync.SlugPrefix,
		Interval:   cfg.SyncInterval(),
	}, client, store)
	if cfg.Sync.PriceHistory {
		im.WithHistory(client)
	}

	_, err := im.Import(ctx, from, to)
	return err
}

// runCollect graba snapshots del book del mercado en curso hasta SIGINT/SIGTERM.
func runCollect(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage) error {
	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	return collector.New(collector.Config{
		SlugPrefix: cfg.Sync.SlugPrefix,
		Interval:   cfg.SyncInterval(),
		PollEvery:  cfg.PollInterval(),
	}, client, client, store).Run(ctx)
}
