package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del replay.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Storage  StorageConfig  `yaml:"storage"`
	API      APIConfig      `yaml:"api"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla el motor de replay.
type BacktestConfig struct {
	StartingBalance    float64        `yaml:"starting_balance"`
	AOIWindow          int            `yaml:"aoi_window"`
	Mode               string         `yaml:"mode"` // INDEPENDENT | EXCLUSIVE
	FeeRate            float64        `yaml:"fee_rate"`
	Seed               uint64         `yaml:"seed"` // 0 = semilla por tiempo
	ProgressEvery      int            `yaml:"progress_every"`
	FallbackTTCSeconds *float64       `yaml:"fallback_ttc_seconds"` // nil = 30; 0 = solo al cierre
	RulesFile          string         `yaml:"rules_file"`
	Workers            int            `yaml:"workers"` // para -batch
	Batch              []BatchVariant `yaml:"batch"`
}

// BatchVariant sobreescribe parámetros del backtest base para una corrida de -batch.
// Los campos vacíos heredan del bloque backtest.
type BatchVariant struct {
	Label           string  `yaml:"label"`
	Mode            string  `yaml:"mode"`
	AOIWindow       int     `yaml:"aoi_window"`
	StartingBalance float64 `yaml:"starting_balance"`
	Seed            uint64  `yaml:"seed"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// SyncConfig controla la importación de mercados y la grabación de snapshots.
type SyncConfig struct {
	SlugPrefix      string `yaml:"slug_prefix"`
	IntervalSeconds int    `yaml:"interval_seconds"`
	PriceHistory    bool   `yaml:"price_history"` // reconstruir snapshots desde el CLOB
	PollSeconds     int    `yaml:"poll_seconds"`  // -collect: cada cuánto se lee el book
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)

	return &cfg, nil
}

// SyncInterval devuelve la duración de cada mercado como time.Duration.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// PollInterval devuelve cada cuánto graba el collector.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Sync.PollSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("BACKTEST_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BACKTEST_SEED %q: %w", v, err)
		}
		cfg.Backtest.Seed = seed
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.StartingBalance <= 0 {
		cfg.Backtest.StartingBalance = 1000
	}
	if cfg.Backtest.AOIWindow <= 0 {
		cfg.Backtest.AOIWindow = 10
	}
	if cfg.Backtest.Mode == "" {
		cfg.Backtest.Mode = "INDEPENDENT"
	}
	if cfg.Backtest.FeeRate <= 0 {
		cfg.Backtest.FeeRate = 0.0625
	}
	if cfg.Backtest.ProgressEvery <= 0 {
		cfg.Backtest.ProgressEvery = 20
	}
	if cfg.Backtest.FallbackTTCSeconds == nil {
		ttc := domain.DefaultFallbackTTC
		cfg.Backtest.FallbackTTCSeconds = &ttc
	}
	if cfg.Backtest.RulesFile == "" {
		cfg.Backtest.RulesFile = "config/rules.yaml"
	}
	if cfg.Backtest.Workers <= 0 {
		cfg.Backtest.Workers = 4
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Sync.SlugPrefix == "" {
		cfg.Sync.SlugPrefix = "btc-updown-5m"
	}
	if cfg.Sync.IntervalSeconds <= 0 {
		cfg.Sync.IntervalSeconds = 300
	}
	if cfg.Sync.PollSeconds <= 0 {
		cfg.Sync.PollSeconds = 10
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polyreplay.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
