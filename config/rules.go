package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// RuleSet es el contenido del archivo de reglas.
type RuleSet struct {
	Rules    []RuleSpec `yaml:"rules"`
	Fallback *RuleSpec  `yaml:"fallback"`
}

// RuleSpec es una regla tal como se escribe en YAML (o JSON).
type RuleSpec struct {
	ID              string          `yaml:"id"`
	Name            string          `yaml:"name"`
	MarketFilter    string          `yaml:"market_filter"`
	ConditionMode   string          `yaml:"condition_mode"`
	Conditions      []ConditionSpec `yaml:"conditions"`
	Action          ActionSpec      `yaml:"action"`
	CooldownSeconds float64         `yaml:"cooldown_seconds"`
	Enabled         *bool           `yaml:"enabled"` // nil = true
	Random          *RandomSpec     `yaml:"random"`
}

// ConditionSpec admite value escalar (lt/gt/eq) o par [low, high] (between).
type ConditionSpec struct {
	Field    string `yaml:"field"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
}

// ActionSpec es la orden a ejecutar.
type ActionSpec struct {
	Side    string  `yaml:"side"`
	Outcome string  `yaml:"outcome"`
	Amount  float64 `yaml:"amount"`
}

// RandomSpec reemplaza las condiciones por un sorteo.
type RandomSpec struct {
	UpRatio      float64 `yaml:"up_ratio"`
	TriggerAtTTC float64 `yaml:"trigger_at_ttc"`
}

// LoadRules lee y convierte el archivo de reglas. YAML es superconjunto de JSON,
// así que ambos formatos sirven.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("config.LoadRules: read %q: %w", path, err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("config.LoadRules: parse: %w", err)
	}
	return rs, nil
}

// DomainRules convierte las reglas y el fallback a tipos de dominio.
// Las reglas sin id reciben un UUID.
func (rs RuleSet) DomainRules() ([]domain.TradingRule, *domain.TradingRule, error) {
	rules := make([]domain.TradingRule, 0, len(rs.Rules))
	for i, raw := range rs.Rules {
		r, err := raw.toDomain()
		if err != nil {
			return nil, nil, fmt.Errorf("config.DomainRules: rule %d: %w", i, err)
		}
		rules = append(rules, r)
	}

	var fallback *domain.TradingRule
	if rs.Fallback != nil {
		fb, err := rs.Fallback.toDomain()
		if err != nil {
			return nil, nil, fmt.Errorf("config.DomainRules: fallback: %w", err)
		}
		fallback = &fb
	}
	return rules, fallback, nil
}

// Domain arma la configuración del motor a partir del bloque backtest y las reglas.
func (c *Config) Domain(rs RuleSet) (domain.BacktestConfig, error) {
	rules, fallback, err := rs.DomainRules()
	if err != nil {
		return domain.BacktestConfig{}, err
	}
	b := c.Backtest
	return domain.BacktestConfig{
		Rules:           rules,
		StartingBalance: b.StartingBalance,
		AOIWindow:       b.AOIWindow,
		Mode:            domain.Mode(strings.ToUpper(b.Mode)),
		Fallback:        fallback,
		FallbackTTC:     b.fallbackTTC(),
		FeeRate:         b.FeeRate,
		Seed:            b.Seed,
		ProgressEvery:   b.ProgressEvery,
	}, nil
}

func (b BacktestConfig) fallbackTTC() float64 {
	if b.FallbackTTCSeconds == nil {
		return domain.DefaultFallbackTTC
	}
	return *b.FallbackTTCSeconds
}

// Variants devuelve una configuración por cada variante de -batch.
// Sin variantes, compara los dos modos de cooldown.
func (c *Config) Variants(base domain.BacktestConfig) ([]string, []domain.BacktestConfig) {
	variants := c.Backtest.Batch
	if len(variants) == 0 {
		variants = []BatchVariant{
			{Label: "independent", Mode: string(domain.ModeIndependent)},
			{Label: "exclusive", Mode: string(domain.ModeExclusive)},
		}
	}

	labels := make([]string, 0, len(variants))
	cfgs := make([]domain.BacktestConfig, 0, len(variants))
	for i, v := range variants {
		cfg := base
		if v.Mode != "" {
			cfg.Mode = domain.Mode(strings.ToUpper(v.Mode))
		}
		if v.AOIWindow > 0 {
			cfg.AOIWindow = v.AOIWindow
		}
		if v.StartingBalance > 0 {
			cfg.StartingBalance = v.StartingBalance
		}
		if v.Seed != 0 {
			cfg.Seed = v.Seed
		}
		label := v.Label
		if label == "" {
			label = fmt.Sprintf("variant-%d", i+1)
		}
		labels = append(labels, label)
		cfgs = append(cfgs, cfg)
	}
	return labels, cfgs
}

func (s RuleSpec) toDomain() (domain.TradingRule, error) {
	r := domain.TradingRule{
		ID:            s.ID,
		Name:          s.Name,
		MarketFilter:  s.MarketFilter,
		ConditionMode: domain.ConditionMode(strings.ToUpper(s.ConditionMode)),
		Action: domain.Action{
			Side:    domain.OrderSide(strings.ToUpper(s.Action.Side)),
			Outcome: domain.Side(strings.ToUpper(s.Action.Outcome)),
			Amount:  s.Action.Amount,
		},
		Cooldown: time.Duration(s.CooldownSeconds * float64(time.Second)),
		Enabled:  s.Enabled == nil || *s.Enabled,
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ConditionMode == "" {
		r.ConditionMode = domain.MatchAll
	}
	if r.Action.Side == "" {
		r.Action.Side = domain.OrderBuy
	}
	if s.Random != nil {
		r.Random = &domain.RandomDecision{
			UpRatio:              s.Random.UpRatio,
			TriggerAtTimeToClose: s.Random.TriggerAtTTC,
		}
	}

	for j, cs := range s.Conditions {
		v, err := conditionValue(cs.Value)
		if err != nil {
			return domain.TradingRule{}, fmt.Errorf("condition %d: %w", j, err)
		}
		r.Conditions = append(r.Conditions, domain.Condition{
			Field:    domain.Field(cs.Field),
			Operator: domain.Operator(strings.ToLower(cs.Operator)),
			Value:    v,
		})
	}
	return r, nil
}

// conditionValue acepta un número o una lista de exactamente dos números.
func conditionValue(raw any) (domain.ConditionValue, error) {
	switch v := raw.(type) {
	case []any:
		if len(v) != 2 {
			return domain.ConditionValue{}, fmt.Errorf("%w: range needs 2 values, got %d", domain.ErrInvalidCondition, len(v))
		}
		low, ok1 := toFloat(v[0])
		high, ok2 := toFloat(v[1])
		if !ok1 || !ok2 {
			return domain.ConditionValue{}, fmt.Errorf("%w: non-numeric range %v", domain.ErrInvalidCondition, v)
		}
		return domain.Range(low, high), nil
	case nil:
		return domain.ConditionValue{}, fmt.Errorf("%w: missing value", domain.ErrInvalidCondition)
	default:
		f, ok := toFloat(v)
		if !ok {
			return domain.ConditionValue{}, fmt.Errorf("%w: non-numeric value %v", domain.ErrInvalidCondition, v)
		}
		return domain.Scalar(f), nil
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
