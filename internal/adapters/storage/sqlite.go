package storage

// sqlite.go — histórico de mercados y resultados de backtests en un solo archivo.
//
// Estrategia:
//   - `markets`, `outcomes`, `price_snapshots`: el histórico que escriben el
//     collector y el importador de Gamma. El backtest solo lo lee. Todo se
//     escribe con upsert, así que repetir un -sync no duplica filas.
//   - `backtest_runs`: una fila por ejecución con el resumen de stats.
//   - `backtest_trades` / `backtest_equity`: ledger y curva completos por run.
//   - Los timestamps se guardan como INTEGER en ms UTC: ordenan y comparan
//     sin depender del formato de texto del driver.

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS markets (
    id         TEXT PRIMARY KEY,
    slug       TEXT    NOT NULL,
    start_time INTEGER NOT NULL,
    end_time   INTEGER NOT NULL,
    outcome    TEXT    NOT NULL DEFAULT '',
    volume     REAL    NOT NULL DEFAULT 0,
    yes_token  TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS outcomes (
    slug       TEXT PRIMARY KEY,
    start_time INTEGER NOT NULL,
    outcome    TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS price_snapshots (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    market_id    TEXT    NOT NULL,
    recorded_at  INTEGER NOT NULL,
    mid_yes      REAL,
    best_bid_yes REAL    NOT NULL DEFAULT 0,
    best_ask_yes REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS backtest_runs (
    id                TEXT PRIMARY KEY,
    label             TEXT,
    created_at        INTEGER NOT NULL,
    mode              TEXT    NOT NULL,
    aoi_window        INTEGER NOT NULL,
    starting_balance  REAL    NOT NULL,
    final_balance     REAL    NOT NULL,
    markets_processed INTEGER NOT NULL DEFAULT 0,
    total_trades      INTEGER NOT NULL DEFAULT 0,
    wins              INTEGER NOT NULL DEFAULT 0,
    losses            INTEGER NOT NULL DEFAULT 0,
    win_rate          REAL    NOT NULL DEFAULT 0,
    total_pnl         REAL    NOT NULL DEFAULT 0,
    profit_factor     REAL,
    max_drawdown      REAL    NOT NULL DEFAULT 0,
    max_drawdown_pct  REAL    NOT NULL DEFAULT 0,
    sharpe            REAL    NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS backtest_trades (
    run_id        TEXT    NOT NULL,
    seq           INTEGER NOT NULL,
    type          TEXT    NOT NULL,
    market_id     TEXT    NOT NULL,
    market_slug   TEXT,
    side          TEXT    NOT NULL,
    price         REAL    NOT NULL,
    quantity      REAL    NOT NULL,
    fee           REAL    NOT NULL DEFAULT 0,
    total         REAL    NOT NULL,
    pnl           REAL    NOT NULL DEFAULT 0,
    rule_id       TEXT,
    rule_name     TEXT,
    ts            INTEGER NOT NULL,
    time_to_close REAL    NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS backtest_equity (
    run_id TEXT    NOT NULL,
    seq    INTEGER NOT NULL,
    ts     INTEGER NOT NULL,
    equity REAL    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_markets_start   ON markets(start_time);
CREATE INDEX IF NOT EXISTS idx_outcomes_start  ON outcomes(start_time);

-- Un snapshot por (market_id, recorded_at). Las bases viejas sin el índice
-- único se quedan con la primera fila de cada par antes de crearlo.
DROP INDEX IF EXISTS idx_snaps_market;
DELETE FROM price_snapshots WHERE id NOT IN (
    SELECT MIN(id) FROM price_snapshots GROUP BY market_id, recorded_at
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_snaps_unique ON price_snapshots(market_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_runs_created    ON backtest_runs(created_at DESC);
`

// SQLiteStorage implementa ports.MarketDataSource, ports.MarketWriter y
// ports.ResultStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
