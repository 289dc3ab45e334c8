package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid backtest config")
	ErrInvalidRule      = errors.New("invalid trading rule")
	ErrInvalidCondition = errors.New("invalid condition")
)

const (
	DefaultStartingBalance = 1000.0
	DefaultAOIWindow       = 10
	DefaultFallbackTTC     = 30.0
	DefaultProgressEvery   = 20
)

// BacktestConfig es la configuración completa de una ejecución.
type BacktestConfig struct {
	Rules           []TradingRule
	StartingBalance float64
	AOIWindow       int
	Mode            Mode
	Fallback        *TradingRule
	FallbackTTC     float64 // segundos; 0 = solo snapshots al cierre
	FeeRate         float64
	Seed            uint64 // 0 = semilla por tiempo
	ProgressEvery   int    // mercados entre eventos de progreso
}

// WithDefaults devuelve una copia con los valores vacíos rellenados.
// FeeRate <= 0 usa DefaultFeeRate. FallbackTTC se respeta tal cual: 0 es un
// umbral válido, el default lo pone la capa de config.
func (c BacktestConfig) WithDefaults() BacktestConfig {
	if c.AOIWindow <= 0 {
		c.AOIWindow = DefaultAOIWindow
	}
	if c.Mode == "" {
		c.Mode = ModeIndependent
	}
	if c.FeeRate <= 0 {
		c.FeeRate = DefaultFeeRate
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = DefaultProgressEvery
	}
	return c
}

// Validate rechaza configuraciones mal formadas antes de ejecutar nada.
// Los errores envuelven ErrInvalidConfig, ErrInvalidRule o ErrInvalidCondition.
func (c BacktestConfig) Validate() error {
	if c.StartingBalance < 0 {
		return fmt.Errorf("%w: starting balance %.2f < 0", ErrInvalidConfig, c.StartingBalance)
	}
	if c.AOIWindow < 1 {
		return fmt.Errorf("%w: aoi window %d < 1", ErrInvalidConfig, c.AOIWindow)
	}
	if c.Mode != ModeIndependent && c.Mode != ModeExclusive {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.FallbackTTC < 0 {
		return fmt.Errorf("%w: fallback ttc %.0f < 0", ErrInvalidConfig, c.FallbackTTC)
	}

	seen := make(map[string]bool, len(c.Rules))
	for _, r := range c.Rules {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRule, r.ID)
		}
		seen[r.ID] = true
	}
	if c.Fallback != nil {
		if err := c.Fallback.Validate(); err != nil {
			return fmt.Errorf("fallback: %w", err)
		}
	}
	return nil
}

// Validate comprueba una regla y todas sus condiciones.
func (r TradingRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: missing id (name %q)", ErrInvalidRule, r.Name)
	}
	if r.Action.Side != OrderBuy && r.Action.Side != OrderSell {
		return fmt.Errorf("%w: rule %q: unknown action side %q", ErrInvalidRule, r.ID, r.Action.Side)
	}
	if r.Action.Outcome != SideYes && r.Action.Outcome != SideNo && !r.IsRandom() {
		return fmt.Errorf("%w: rule %q: unknown outcome %q", ErrInvalidRule, r.ID, r.Action.Outcome)
	}
	if r.Action.Amount <= 0 {
		return fmt.Errorf("%w: rule %q: amount %.2f <= 0", ErrInvalidRule, r.ID, r.Action.Amount)
	}
	if r.Cooldown < 0 {
		return fmt.Errorf("%w: rule %q: negative cooldown", ErrInvalidRule, r.ID)
	}
	if r.ConditionMode != "" && r.ConditionMode != MatchAll && r.ConditionMode != MatchAny {
		return fmt.Errorf("%w: rule %q: unknown condition mode %q", ErrInvalidRule, r.ID, r.ConditionMode)
	}

	if r.IsRandom() {
		if r.Random.UpRatio < 0 || r.Random.UpRatio > 1 {
			return fmt.Errorf("%w: rule %q: up ratio %.2f outside [0,1]", ErrInvalidRule, r.ID, r.Random.UpRatio)
		}
		if r.Random.TriggerAtTimeToClose < 0 {
			return fmt.Errorf("%w: rule %q: negative random trigger", ErrInvalidRule, r.ID)
		}
		return nil
	}

	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("rule %q condition %d: %w", r.ID, i, err)
		}
	}
	return nil
}

// Validate comprueba que campo, operador y forma del valor son coherentes.
func (c Condition) Validate() error {
	if !c.Field.Known() {
		return fmt.Errorf("%w: unknown field %q", ErrInvalidCondition, c.Field)
	}
	if !c.Operator.Known() {
		return fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, c.Operator)
	}
	if c.Operator == OpBetween {
		lo, hi, ok := c.Value.AsRange()
		if !ok {
			return fmt.Errorf("%w: %s between needs [low, high]", ErrInvalidCondition, c.Field)
		}
		if lo > hi {
			return fmt.Errorf("%w: %s between low %.4f > high %.4f", ErrInvalidCondition, c.Field, lo, hi)
		}
		return nil
	}
	if _, ok := c.Value.AsScalar(); !ok {
		return fmt.Errorf("%w: %s %s needs a scalar value", ErrInvalidCondition, c.Field, c.Operator)
	}
	return nil
}
