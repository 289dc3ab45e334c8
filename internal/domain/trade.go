package domain

import "time"

// TradeType distingue compras de liquidaciones en el ledger.
type TradeType string

const (
	TradeBuy    TradeType = "BUY"
	TradeSettle TradeType = "SETTLE"
)

// Mode define cómo interactúan los cooldowns de varias reglas.
type Mode string

const (
	// ModeIndependent: cada regla tiene su propio cooldown.
	ModeIndependent Mode = "INDEPENDENT"
	// ModeExclusive: un disparo bloquea a todas las reglas durante su cooldown.
	ModeExclusive Mode = "EXCLUSIVE"
)

// OpenPosition es una compra pendiente de liquidar en su mercado.
type OpenPosition struct {
	MarketID   string
	MarketSlug string
	Side       Side
	Quantity   float64
	EntryPrice float64
	RuleID     string
	RuleName   string
}

// Trade es una entrada inmutable del ledger.
type Trade struct {
	Type        TradeType
	MarketID    string
	MarketSlug  string
	Side        Side
	Price       float64 // precio de entrada (BUY) o de liquidación 1/0 (SETTLE)
	Quantity    float64
	Fee         float64
	Total       float64 // coste (BUY) o payout (SETTLE)
	PnL         float64 // siempre 0 en BUY
	RuleID      string
	RuleName    string
	Timestamp   time.Time
	TimeToClose float64 // segundos, solo BUY
}

// EquityPoint es el balance en caja en un instante.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// RuleStats agrega los trades liquidados de una regla.
type RuleStats struct {
	RuleID   string
	RuleName string
	Trades   int
	Wins     int
	Losses   int
	PnL      float64
}

// BacktestStats son las métricas derivadas del ledger y la curva de equity.
type BacktestStats struct {
	TotalTrades    int
	SettledTrades  int
	Wins           int
	Losses         int
	WinRate        float64
	TotalPnL       float64
	TotalPnLPct    float64 // fracción del balance inicial
	AvgWin         float64
	AvgLoss        float64 // magnitud positiva
	ProfitFactor   float64 // +Inf si hay wins sin pérdidas
	MaxDrawdown    float64
	MaxDrawdownPct float64 // fracción del pico donde ocurrió
	SharpeRatio    float64
	TotalFees      float64
	FinalBalance   float64
	ByRule         []RuleStats
}

// BacktestResult es la salida completa de una ejecución.
type BacktestResult struct {
	Config           BacktestConfig
	Stats            BacktestStats
	Trades           []Trade
	EquityCurve      []EquityPoint
	MarketsProcessed int
}
