package backtest

// batch.go — worker pool para ejecutar varias configuraciones en paralelo.
//
// Cada ejecución tiene su propio session, así que los workers no comparten
// estado mutable: solo leen el mismo Input.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// BatchResult es el resultado de una configuración dentro de un batch.
type BatchResult struct {
	Index  int
	Result domain.BacktestResult
	Err    error
}

// RunBatch ejecuta cada configuración sobre el mismo input usando un pool de
// workers. Devuelve los resultados en el mismo orden que configs. Un error en
// una configuración no aborta las demás.
//
// Si workers <= 0 usa runtime.NumCPU().
func RunBatch(ctx context.Context, in Input, configs []domain.BacktestConfig, workers int) []BatchResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(configs) {
		workers = len(configs)
	}

	workCh := make(chan int, len(configs))
	results := make([]BatchResult, len(configs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range workCh {
				results[idx] = runOne(ctx, in, idx, configs[idx])
			}
		}()
	}

	for i := range configs {
		workCh <- i
	}
	close(workCh)
	wg.Wait()

	slog.Debug("batch complete", "configs", len(configs), "workers", workers)
	return results
}

func runOne(ctx context.Context, in Input, idx int, cfg domain.BacktestConfig) BatchResult {
	eng, err := New(cfg, nil)
	if err != nil {
		return BatchResult{Index: idx, Err: err}
	}
	res, err := eng.Run(ctx, in, nil)
	if err != nil {
		slog.Debug("batch run failed", "index", idx, "err", err)
	}
	return BatchResult{Index: idx, Result: res, Err: err}
}
