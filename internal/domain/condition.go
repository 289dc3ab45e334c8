package domain

import "math"

// eqTolerance es la tolerancia absoluta del operador eq.
const eqTolerance = 1e-4

// Value proyecta el campo sobre el contexto. ok=false si el campo no existe.
func (f Field) Value(ctx MarketContext) (float64, bool) {
	switch f {
	case FieldPriceYes:
		return ctx.PriceYes, true
	case FieldPriceNo:
		return ctx.PriceNo, true
	case FieldSpread:
		return ctx.Spread, true
	case FieldVolume:
		return ctx.Volume, true
	case FieldTimeToClose:
		return ctx.TimeToClose, true
	case FieldAOI:
		return ctx.AOI, true
	}
	return 0, false
}

// Known devuelve true si el campo pertenece al conjunto cerrado.
func (f Field) Known() bool {
	_, ok := f.Value(MarketContext{})
	return ok
}

// Known devuelve true si el operador pertenece al conjunto cerrado.
func (op Operator) Known() bool {
	switch op {
	case OpLt, OpGt, OpEq, OpBetween:
		return true
	}
	return false
}

// Evaluate decide si el contexto cumple la condición.
// Campo u operador desconocidos, o valor con forma incorrecta, devuelven false.
func (c Condition) Evaluate(ctx MarketContext) bool {
	v, ok := c.Field.Value(ctx)
	if !ok {
		return false
	}

	switch c.Operator {
	case OpLt:
		x, ok := c.Value.AsScalar()
		return ok && v < x
	case OpGt:
		x, ok := c.Value.AsScalar()
		return ok && v > x
	case OpEq:
		x, ok := c.Value.AsScalar()
		return ok && math.Abs(v-x) <= eqTolerance
	case OpBetween:
		lo, hi, ok := c.Value.AsRange()
		return ok && v >= lo && v <= hi
	}
	return false
}

// EvaluateAll combina las condiciones según mode (ALL por defecto).
// Una lista vacía cumple ALL y no cumple ANY.
func EvaluateAll(mode ConditionMode, conds []Condition, ctx MarketContext) bool {
	if mode == MatchAny {
		for _, c := range conds {
			if c.Evaluate(ctx) {
				return true
			}
		}
		return false
	}
	for _, c := range conds {
		if !c.Evaluate(ctx) {
			return false
		}
	}
	return true
}
