package domain

import (
	"strings"
	"time"
)

// Side es el lado del mercado binario que se compra.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// OrderSide es la dirección de la orden.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// ConditionMode combina las condiciones de una regla.
type ConditionMode string

const (
	MatchAll ConditionMode = "ALL"
	MatchAny ConditionMode = "ANY"
)

// Field es una de las proyecciones numéricas de MarketContext.
type Field string

const (
	FieldPriceYes    Field = "priceYes"
	FieldPriceNo     Field = "priceNo"
	FieldSpread      Field = "spread"
	FieldVolume      Field = "volume"
	FieldTimeToClose Field = "timeToClose"
	FieldAOI         Field = "aoi"
)

// Operator compara el valor de un Field con el de la condición.
type Operator string

const (
	OpLt      Operator = "lt"
	OpGt      Operator = "gt"
	OpEq      Operator = "eq"
	OpBetween Operator = "between"
)

// ConditionValue es un escalar (lt/gt/eq) o un par [low, high] (between).
type ConditionValue struct {
	low, high float64
	pair      bool
	set       bool
}

// Scalar crea un valor escalar.
func Scalar(v float64) ConditionValue {
	return ConditionValue{low: v, high: v, set: true}
}

// Range crea un par [low, high].
func Range(low, high float64) ConditionValue {
	return ConditionValue{low: low, high: high, pair: true, set: true}
}

// AsScalar devuelve el escalar; ok=false si el valor es un par o está vacío.
func (v ConditionValue) AsScalar() (float64, bool) {
	if !v.set || v.pair {
		return 0, false
	}
	return v.low, true
}

// AsRange devuelve el par; ok=false si el valor es escalar o está vacío.
func (v ConditionValue) AsRange() (low, high float64, ok bool) {
	if !v.set || !v.pair {
		return 0, 0, false
	}
	return v.low, v.high, true
}

// Condition es un predicado sobre un campo del contexto de mercado.
type Condition struct {
	Field    Field
	Operator Operator
	Value    ConditionValue
}

// Action describe la orden que se ejecuta cuando la regla dispara.
type Action struct {
	Side    OrderSide
	Outcome Side
	Amount  float64 // USDC
}

// RandomDecision reemplaza la evaluación de condiciones por un sorteo.
// Dispara cuando TimeToClose <= TriggerAtTimeToClose y elige YES con
// probabilidad UpRatio.
type RandomDecision struct {
	UpRatio              float64
	TriggerAtTimeToClose float64 // segundos
}

// TradingRule es una regla de usuario: condiciones (o sorteo) + acción + cooldown.
type TradingRule struct {
	ID            string
	Name          string
	MarketFilter  string
	ConditionMode ConditionMode
	Conditions    []Condition
	Action        Action
	Cooldown      time.Duration
	Enabled       bool
	Random        *RandomDecision
}

// IsRandom devuelve true si la regla decide por sorteo e ignora sus condiciones.
func (r TradingRule) IsRandom() bool {
	return r.Random != nil
}

// MatchesSlug aplica el filtro de slug: "*" (o vacío) acepta todo, un filtro
// terminado en "*" compara por prefijo y cualquier otro exige igualdad.
func (r TradingRule) MatchesSlug(slug string) bool {
	f := r.MarketFilter
	if f == "" || f == "*" {
		return true
	}
	if prefix, ok := strings.CutSuffix(f, "*"); ok {
		return strings.HasPrefix(slug, prefix)
	}
	return f == slug
}
