package backtest

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

var t0 = time.Date(2025, 10, 9, 9, 0, 0, 0, time.UTC)

// market crea el mercado n-ésimo de la serie, de 5 minutos, empezando en t0.
func market(n int, outcome domain.Outcome) domain.MarketRecord {
	start := t0.Add(time.Duration(n) * 5 * time.Minute)
	return domain.MarketRecord{
		ID:        fmt.Sprintf("m%d", n),
		Slug:      fmt.Sprintf("btc-updown-5m-%d", start.Unix()),
		StartTime: start,
		EndTime:   start.Add(5 * time.Minute),
		Outcome:   outcome,
		Volume:    1000,
	}
}

// snapsAt crea snapshots a los segundos indicados desde el inicio del mercado.
func snapsAt(m domain.MarketRecord, secs []int, prices []float64) []domain.PriceSnapshot {
	out := make([]domain.PriceSnapshot, len(secs))
	for i, s := range secs {
		out[i] = domain.PriceSnapshot{
			MarketID:   m.ID,
			RecordedAt: m.StartTime.Add(time.Duration(s) * time.Second),
			MidYes:     prices[i],
			BestBidYes: prices[i] - 0.01,
			BestAskYes: prices[i] + 0.01,
		}
	}
	return out
}

func priceAbove(id string, threshold float64, outcome domain.Side, amount float64, cooldown time.Duration) domain.TradingRule {
	return domain.TradingRule{
		ID:            id,
		Name:          id,
		MarketFilter:  "*",
		ConditionMode: domain.MatchAll,
		Conditions: []domain.Condition{
			{Field: domain.FieldPriceYes, Operator: domain.OpGt, Value: domain.Scalar(threshold)},
		},
		Action:   domain.Action{Side: domain.OrderBuy, Outcome: outcome, Amount: amount},
		Cooldown: cooldown,
		Enabled:  true,
	}
}

func buys(trades []domain.Trade) []domain.Trade {
	var out []domain.Trade
	for _, t := range trades {
		if t.Type == domain.TradeBuy {
			out = append(out, t)
		}
	}
	return out
}

// scriptedSource devuelve los valores en orden y luego repite el último.
type scriptedSource struct {
	values []float64
	i      int
}

func (s *scriptedSource) Float64() float64 {
	v := s.values[min(s.i, len(s.values)-1)]
	s.i++
	return v
}
