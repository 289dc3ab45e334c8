package domain

import "time"

// Outcome es el lado ganador de un mercado up/down de 5 minutos.
type Outcome string

const (
	OutcomeUp         Outcome = "Up"
	OutcomeDown       Outcome = "Down"
	OutcomeUnresolved Outcome = ""
)

// Resolved devuelve true si el mercado ya tiene un lado ganador.
func (o Outcome) Resolved() bool {
	return o == OutcomeUp || o == OutcomeDown
}

// Binary codifica el outcome como 1 (Up) o 0 (Down).
func (o Outcome) Binary() float64 {
	if o == OutcomeUp {
		return 1
	}
	return 0
}

// WinningSide devuelve el lado (YES/NO) que cobra $1 por share al resolverse.
func (o Outcome) WinningSide() Side {
	if o == OutcomeUp {
		return SideYes
	}
	return SideNo
}

// ParseOutcome acepta "Up"/"Down" en cualquier capitalización y "yes"/"no".
func ParseOutcome(s string) Outcome {
	switch s {
	case "Up", "up", "UP", "Yes", "yes", "YES":
		return OutcomeUp
	case "Down", "down", "DOWN", "No", "no", "NO":
		return OutcomeDown
	}
	return OutcomeUnresolved
}

// MarketRecord es un mercado binario histórico de 5 minutos.
type MarketRecord struct {
	ID        string
	Slug      string
	StartTime time.Time
	EndTime   time.Time
	Outcome   Outcome
	Volume    float64

	YesTokenID string // token CLOB del outcome Up; vacío si no se conoce
}

// PriceSnapshot es una observación del book YES de un mercado.
type PriceSnapshot struct {
	MarketID   string
	RecordedAt time.Time
	MidYes     float64 // 0 si el collector no tenía mid
	BestBidYes float64
	BestAskYes float64
}

// PriceYes devuelve el mid YES, o el best bid si no hay mid.
func (s PriceSnapshot) PriceYes() float64 {
	if s.MidYes != 0 {
		return s.MidYes
	}
	return s.BestBidYes
}

// Usable indica si el precio YES está estrictamente entre 0 y 1.
func (s PriceSnapshot) Usable() bool {
	p := s.PriceYes()
	return p > 0 && p < 1
}

// Spread devuelve ask - bid, nunca negativo.
func (s PriceSnapshot) Spread() float64 {
	spread := s.BestAskYes - s.BestBidYes
	if spread < 0 {
		return 0
	}
	return spread
}

// OutcomeRecord alimenta el AOI con el resultado de un mercado ya resuelto.
type OutcomeRecord struct {
	Slug      string
	StartTime time.Time
	Outcome   Outcome
}

// Value devuelve 1 para Up y 0 para Down.
func (r OutcomeRecord) Value() float64 {
	return r.Outcome.Binary()
}

// MarketContext es la vista numérica de un snapshot que consumen las condiciones.
type MarketContext struct {
	PriceYes    float64
	PriceNo     float64
	Spread      float64
	Volume      float64
	TimeToClose float64 // segundos
	AOI         float64
}

// NewMarketContext construye el contexto de un snapshot dentro de su mercado.
func NewMarketContext(m MarketRecord, s PriceSnapshot, aoi float64) MarketContext {
	yes := s.PriceYes()
	return MarketContext{
		PriceYes:    yes,
		PriceNo:     1 - yes,
		Spread:      s.Spread(),
		Volume:      m.Volume,
		TimeToClose: TimeToClose(m.EndTime, s.RecordedAt),
		AOI:         aoi,
	}
}

// TimeToClose devuelve los segundos que faltan hasta end, con mínimo 0.
func TimeToClose(end, at time.Time) float64 {
	ttc := end.Sub(at).Seconds()
	if ttc < 0 {
		return 0
	}
	return ttc
}

// PriceFor devuelve el precio de entrada de un lado.
func (c MarketContext) PriceFor(side Side) float64 {
	if side == SideNo {
		return c.PriceNo
	}
	return c.PriceYes
}
