package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, cfg domain.BacktestConfig, in Input) domain.BacktestResult {
	t.Helper()
	eng, err := New(cfg, nil)
	require.NoError(t, err)
	res, err := eng.Run(context.Background(), in, nil)
	require.NoError(t, err)
	return res
}

func singleMarketInput(outcome domain.Outcome, prices ...float64) Input {
	m := market(0, outcome)
	secs := make([]int, len(prices))
	for i := range prices {
		secs[i] = 60 * (i + 1)
	}
	return Input{
		Markets:   []domain.MarketRecord{m},
		Snapshots: map[string][]domain.PriceSnapshot{m.ID: snapsAt(m, secs, prices)},
	}
}

func TestRun_EndToEnd_SingleBuyAndSettle(t *testing.T) {
	cfg := domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 50, 5*time.Minute)},
	}
	res := run(t, cfg, singleMarketInput(domain.OutcomeUp, 0.55, 0.62, 0.70))

	require.Len(t, res.Trades, 2)
	buy, settle := res.Trades[0], res.Trades[1]

	assert.Equal(t, domain.TradeBuy, buy.Type)
	assert.Equal(t, 0.62, buy.Price)
	assert.Equal(t, 80.0, buy.Quantity)
	assert.InDelta(t, 1.178, buy.Fee, 1e-9)
	assert.InDelta(t, 50.778, buy.Total, 1e-9)
	assert.Equal(t, 180.0, buy.TimeToClose)

	assert.Equal(t, domain.TradeSettle, settle.Type)
	assert.Equal(t, 1.0, settle.Price)
	assert.Equal(t, 80.0, settle.Total)
	assert.Equal(t, 0.0, settle.Fee)
	assert.InDelta(t, 29.222, settle.PnL, 1e-9)

	assert.InDelta(t, 1029.222, res.Stats.FinalBalance, 1e-9)
	assert.Equal(t, 1, res.Stats.Wins)
	assert.Equal(t, 1, res.MarketsProcessed)
	assert.InDelta(t, 0.0, domain.Reconcile(1000, res.Trades, res.Stats.FinalBalance), 1e-9)
}

func TestRun_ZeroCooldownFiresEverySnapshot(t *testing.T) {
	cfg := domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 50, 0)},
	}
	res := run(t, cfg, singleMarketInput(domain.OutcomeUp, 0.55, 0.62, 0.70))

	b := buys(res.Trades)
	require.Len(t, b, 2)
	assert.Equal(t, 80.0, b[0].Quantity)
	assert.Equal(t, 71.0, b[1].Quantity) // floor(50 / 0.70)
}

func TestRun_CooldownBoundaryIsInclusive(t *testing.T) {
	in := singleMarketInput(domain.OutcomeUp, 0.65, 0.65) // snapshots a 60s y 120s

	exact := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 10, 60*time.Second)},
	}, in)
	assert.Len(t, buys(exact.Trades), 2, "elapsed == cooldown fires again")

	longer := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 10, 61*time.Second)},
	}, in)
	assert.Len(t, buys(longer.Trades), 1)
}

func TestRun_CooldownResetsAcrossMarkets(t *testing.T) {
	m0, m1 := market(0, domain.OutcomeUp), market(1, domain.OutcomeDown)
	in := Input{
		Markets: []domain.MarketRecord{m0, m1},
		Snapshots: map[string][]domain.PriceSnapshot{
			m0.ID: snapsAt(m0, []int{240}, []float64{0.7}),
			m1.ID: snapsAt(m1, []int{10}, []float64{0.7}),
		},
	}
	res := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 10, time.Hour)},
	}, in)

	b := buys(res.Trades)
	require.Len(t, b, 2)
	assert.Equal(t, "m0", b[0].MarketID)
	assert.Equal(t, "m1", b[1].MarketID)
}

func TestRun_IndependentVsExclusive(t *testing.T) {
	in := singleMarketInput(domain.OutcomeUp, 0.65, 0.65, 0.65) // 60s, 120s, 180s
	rules := []domain.TradingRule{
		priceAbove("a", 0.6, domain.SideYes, 10, 120*time.Second),
		priceAbove("b", 0.6, domain.SideNo, 10, 0),
	}

	indep := run(t, domain.BacktestConfig{StartingBalance: 1000, Rules: rules, Mode: domain.ModeIndependent}, in)
	// 60s: a,b · 120s: b · 180s: a,b
	ib := buys(indep.Trades)
	require.Len(t, ib, 5)
	assert.Equal(t, []string{"a", "b", "b", "a", "b"}, ruleIDs(ib))

	excl := run(t, domain.BacktestConfig{StartingBalance: 1000, Rules: rules, Mode: domain.ModeExclusive}, in)
	// 60s: a bloquea a todas hasta 180s · 180s: a otra vez
	eb := buys(excl.Trades)
	require.Len(t, eb, 2)
	assert.Equal(t, []string{"a", "a"}, ruleIDs(eb))
	assert.Equal(t, t0.Add(180*time.Second), eb[1].Timestamp)
}

func ruleIDs(trades []domain.Trade) []string {
	ids := make([]string, len(trades))
	for i, t := range trades {
		ids[i] = t.RuleID
	}
	return ids
}

func TestRun_LosingSidePaysZero(t *testing.T) {
	cfg := domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 50, time.Hour)},
	}
	res := run(t, cfg, singleMarketInput(domain.OutcomeDown, 0.62))

	require.Len(t, res.Trades, 2)
	settle := res.Trades[1]
	assert.Equal(t, 0.0, settle.Price)
	assert.Equal(t, 0.0, settle.Total)
	assert.InDelta(t, -50.778, settle.PnL, 1e-9)
	assert.InDelta(t, 949.222, res.Stats.FinalBalance, 1e-9)
	assert.Equal(t, 1, res.Stats.Losses)
}

func TestRun_NoSideUsesComplementPrice(t *testing.T) {
	cfg := domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideNo, 10, time.Hour)},
	}
	res := run(t, cfg, singleMarketInput(domain.OutcomeDown, 0.75))

	require.Len(t, res.Trades, 2)
	assert.InDelta(t, 0.25, res.Trades[0].Price, 1e-12)
	assert.Equal(t, 40.0, res.Trades[0].Quantity)
	assert.Equal(t, 40.0, res.Trades[1].Total, "NO wins when the market resolves Down")
}

func TestRun_InsufficientFundsDropsSignal(t *testing.T) {
	cfg := domain.BacktestConfig{
		StartingBalance: 40,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 50, 0)},
	}
	res := run(t, cfg, singleMarketInput(domain.OutcomeUp, 0.62, 0.70))

	assert.Empty(t, res.Trades)
	assert.Equal(t, 40.0, res.Stats.FinalBalance)
}

func TestRun_SkipsUnusableSnapshots(t *testing.T) {
	m := market(0, domain.OutcomeUp)
	in := Input{
		Markets: []domain.MarketRecord{m},
		Snapshots: map[string][]domain.PriceSnapshot{m.ID: {
			{MarketID: m.ID, RecordedAt: m.StartTime.Add(time.Minute)},                // sin precio
			{MarketID: m.ID, RecordedAt: m.StartTime.Add(2 * time.Minute), MidYes: 1}, // extremo
		}},
	}
	res := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 10, 0)},
	}, in)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 1, res.MarketsProcessed)
}

func TestRun_SkipsUnresolvedMarkets(t *testing.T) {
	open := market(1, domain.OutcomeUnresolved)
	in := singleMarketInput(domain.OutcomeUp, 0.7)
	in.Markets = append(in.Markets, open)
	in.Snapshots[open.ID] = snapsAt(open, []int{60}, []float64{0.7})

	res := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 10, 0)},
	}, in)
	assert.Equal(t, 1, res.MarketsProcessed)
	assert.Len(t, buys(res.Trades), 1)
	assert.Len(t, res.EquityCurve, 2)
}

func TestRun_DisabledAndSellRulesNeverTrade(t *testing.T) {
	disabled := priceAbove("off", 0.6, domain.SideYes, 10, 0)
	disabled.Enabled = false
	sell := priceAbove("sell", 0.6, domain.SideYes, 10, 0)
	sell.Action.Side = domain.OrderSell

	res := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{disabled, sell},
	}, singleMarketInput(domain.OutcomeUp, 0.7, 0.8))
	assert.Empty(t, res.Trades)
}

func TestRun_SlugFilter(t *testing.T) {
	r := priceAbove("eth", 0.6, domain.SideYes, 10, 0)
	r.MarketFilter = "eth-updown-5m-*"

	res := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{r},
	}, singleMarketInput(domain.OutcomeUp, 0.7))
	assert.Empty(t, res.Trades)
}

func TestRun_EquityCurve(t *testing.T) {
	m0, m1 := market(0, domain.OutcomeUp), market(1, domain.OutcomeDown)
	in := Input{
		Markets: []domain.MarketRecord{m1, m0}, // desordenados a propósito
		Snapshots: map[string][]domain.PriceSnapshot{
			m0.ID: snapsAt(m0, []int{60}, []float64{0.7}),
			m1.ID: snapsAt(m1, []int{60}, []float64{0.7}),
		},
	}
	res := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 10, 0)},
	}, in)

	require.Len(t, res.EquityCurve, 3)
	assert.Equal(t, m0.StartTime, res.EquityCurve[0].Timestamp)
	assert.Equal(t, 1000.0, res.EquityCurve[0].Equity)
	assert.Equal(t, m0.EndTime, res.EquityCurve[1].Timestamp)
	assert.Greater(t, res.EquityCurve[1].Equity, 1000.0)
	assert.Less(t, res.EquityCurve[2].Equity, res.EquityCurve[1].Equity)
	assert.Equal(t, res.Stats.FinalBalance, res.EquityCurve[2].Equity)
}

func TestRun_AOISeesOnlyEarlierOutcomes(t *testing.T) {
	m0, m1 := market(0, domain.OutcomeUp), market(1, domain.OutcomeUp)
	in := Input{
		Markets: []domain.MarketRecord{m0, m1},
		Snapshots: map[string][]domain.PriceSnapshot{
			m0.ID: snapsAt(m0, []int{60}, []float64{0.5}),
			m1.ID: snapsAt(m1, []int{60}, []float64{0.5}),
		},
		// empieza a la vez que m1: no es anterior, no entra en su ventana
		Outcomes: []domain.OutcomeRecord{{Slug: "eth-updown-5m-x", StartTime: m1.StartTime, Outcome: domain.OutcomeDown}},
	}
	aoiRule := domain.TradingRule{
		ID:         "streak",
		Conditions: []domain.Condition{{Field: domain.FieldAOI, Operator: domain.OpGt, Value: domain.Scalar(0.9)}},
		Action:     domain.Action{Side: domain.OrderBuy, Outcome: domain.SideYes, Amount: 10},
		Cooldown:   time.Hour,
		Enabled:    true,
	}

	res := run(t, domain.BacktestConfig{StartingBalance: 1000, AOIWindow: 1, Rules: []domain.TradingRule{aoiRule}}, in)

	b := buys(res.Trades)
	require.Len(t, b, 1, "m0 has no history (aoi 0.5); m1 sees only m0 = Up")
	assert.Equal(t, "m1", b[0].MarketID)
}

func TestRun_AOIPrefersOutcomeRecords(t *testing.T) {
	m0, m1 := market(0, domain.OutcomeUp), market(1, domain.OutcomeUp)
	in := Input{
		Markets: []domain.MarketRecord{m0, m1},
		Snapshots: map[string][]domain.PriceSnapshot{
			m1.ID: snapsAt(m1, []int{60}, []float64{0.5}),
		},
		// el record de m0 manda sobre el outcome del propio mercado
		Outcomes: []domain.OutcomeRecord{{Slug: m0.Slug, StartTime: m0.StartTime, Outcome: domain.OutcomeDown}},
	}
	rule := domain.TradingRule{
		ID:         "reversal",
		Conditions: []domain.Condition{{Field: domain.FieldAOI, Operator: domain.OpLt, Value: domain.Scalar(0.1)}},
		Action:     domain.Action{Side: domain.OrderBuy, Outcome: domain.SideYes, Amount: 10},
		Enabled:    true,
	}
	res := run(t, domain.BacktestConfig{StartingBalance: 1000, AOIWindow: 1, Rules: []domain.TradingRule{rule}}, in)
	assert.Len(t, buys(res.Trades), 1)
}

func TestRun_FallbackFiresOnceWhenNothingElseDid(t *testing.T) {
	m := market(0, domain.OutcomeDown)
	in := Input{
		Markets: []domain.MarketRecord{m},
		// TTC: 180, 25, 10
		Snapshots: map[string][]domain.PriceSnapshot{m.ID: snapsAt(m, []int{120, 275, 290}, []float64{0.4, 0.45, 0.3})},
	}
	fb := domain.TradingRule{
		ID:       "fb",
		Name:     "fallback",
		Action:   domain.Action{Side: domain.OrderBuy, Outcome: domain.SideNo, Amount: 10},
		Cooldown: time.Minute,
		Enabled:  true,
	}
	cfg := domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("never", 0.9, domain.SideYes, 10, 0)},
		Fallback:        &fb,
		FallbackTTC:     30,
	}
	res := run(t, cfg, in)

	b := buys(res.Trades)
	require.Len(t, b, 1)
	assert.Equal(t, "fb", b[0].RuleID)
	assert.Equal(t, m.StartTime.Add(275*time.Second), b[0].Timestamp)
	assert.InDelta(t, 0.55, b[0].Price, 1e-12)
	assert.Equal(t, 18.0, b[0].Quantity) // floor(10 / 0.55)
	assert.Equal(t, 1, res.Stats.Wins)
}

func TestRun_FallbackSkippedWhenPrimaryFired(t *testing.T) {
	m := market(0, domain.OutcomeUp)
	in := Input{
		Markets:   []domain.MarketRecord{m},
		Snapshots: map[string][]domain.PriceSnapshot{m.ID: snapsAt(m, []int{120, 280}, []float64{0.7, 0.7})},
	}
	fb := domain.TradingRule{
		ID:      "fb",
		Action:  domain.Action{Side: domain.OrderBuy, Outcome: domain.SideNo, Amount: 10},
		Enabled: true,
	}
	res := run(t, domain.BacktestConfig{
		StartingBalance: 1000,
		Rules:           []domain.TradingRule{priceAbove("r1", 0.6, domain.SideYes, 10, time.Hour)},
		Fallback:        &fb,
		FallbackTTC:     30,
	}, in)

	b := buys(res.Trades)
	require.Len(t, b, 1)
	assert.Equal(t, "r1", b[0].RuleID)
}

func TestRun_FallbackDisabled(t *testing.T) {
	m := market(0, domain.OutcomeUp)
	in := Input{
		Markets:   []domain.MarketRecord{m},
		Snapshots: map[string][]domain.PriceSnapshot{m.ID: snapsAt(m, []int{280}, []float64{0.5})},
	}
	fb := domain.TradingRule{ID: "fb", Action: domain.Action{Side: domain.OrderBuy, Outcome: domain.SideYes, Amount: 10}}
	res := run(t, domain.BacktestConfig{StartingBalance: 1000, Fallback: &fb, FallbackTTC: 30}, in)
	assert.Empty(t, res.Trades)
}

func TestRun_FallbackZeroThresholdWaitsForClose(t *testing.T) {
	m := market(0, domain.OutcomeDown)
	in := Input{
		Markets: []domain.MarketRecord{m},
		// TTC 20, 1, 0
		Snapshots: map[string][]domain.PriceSnapshot{m.ID: snapsAt(m, []int{280, 299, 300}, []float64{0.5, 0.45, 0.4})},
	}
	fb := domain.TradingRule{
		ID:      "fb",
		Action:  domain.Action{Side: domain.OrderBuy, Outcome: domain.SideNo, Amount: 10},
		Enabled: true,
	}
	res := run(t, domain.BacktestConfig{StartingBalance: 1000, Fallback: &fb, FallbackTTC: 0}, in)

	b := buys(res.Trades)
	require.Len(t, b, 1)
	assert.Equal(t, m.EndTime, b[0].Timestamp)
	assert.Equal(t, 0.0, b[0].TimeToClose)
	assert.InDelta(t, 0.6, b[0].Price, 1e-12)
}

func TestRun_RandomRuleUsesInjectedSource(t *testing.T) {
	m0, m1 := market(0, domain.OutcomeUp), market(1, domain.OutcomeUp)
	in := Input{
		Markets: []domain.MarketRecord{m0, m1},
		Snapshots: map[string][]domain.PriceSnapshot{
			// TTC 120 (no dispara), 50 (dispara), 20 (en cooldown)
			m0.ID: snapsAt(m0, []int{180, 250, 280}, []float64{0.5, 0.5, 0.5}),
			m1.ID: snapsAt(m1, []int{250}, []float64{0.5}),
		},
	}
	coin := domain.TradingRule{
		ID:       "coin",
		Action:   domain.Action{Side: domain.OrderBuy, Amount: 10},
		Cooldown: 5 * time.Minute,
		Enabled:  true,
		Random:   &domain.RandomDecision{UpRatio: 0.5, TriggerAtTimeToClose: 60},
	}
	src := &scriptedSource{values: []float64{0.2, 0.8}}

	eng, err := New(domain.BacktestConfig{StartingBalance: 1000, Rules: []domain.TradingRule{coin}}, src)
	require.NoError(t, err)
	res, err := eng.Run(context.Background(), in, nil)
	require.NoError(t, err)

	b := buys(res.Trades)
	require.Len(t, b, 2)
	assert.Equal(t, domain.SideYes, b[0].Side)
	assert.Equal(t, domain.SideNo, b[1].Side)
	assert.Equal(t, 2, src.i, "suppressed snapshots do not consume draws")
}

func TestRun_SeededRunsAreReproducible(t *testing.T) {
	in := Input{Snapshots: map[string][]domain.PriceSnapshot{}}
	for i := 0; i < 30; i++ {
		outcome := domain.OutcomeUp
		if i%3 == 0 {
			outcome = domain.OutcomeDown
		}
		m := market(i, outcome)
		in.Markets = append(in.Markets, m)
		in.Snapshots[m.ID] = snapsAt(m, []int{200, 260, 290}, []float64{0.45, 0.52, 0.58})
	}
	coin := domain.TradingRule{
		ID:      "coin",
		Action:  domain.Action{Side: domain.OrderBuy, Amount: 20},
		Enabled: true,
		Random:  &domain.RandomDecision{UpRatio: 0.6, TriggerAtTimeToClose: 100},
	}
	cfg := domain.BacktestConfig{StartingBalance: 1000, Seed: 42, Rules: []domain.TradingRule{coin}}

	eng, err := New(cfg, nil)
	require.NoError(t, err)
	a, err := eng.Run(context.Background(), in, nil)
	require.NoError(t, err)
	b, err := eng.Run(context.Background(), in, nil)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Trades)
	assert.InDelta(t, 0.0, domain.Reconcile(1000, a.Trades, a.Stats.FinalBalance), 1e-9)
	assert.Equal(t, a.EquityCurve[len(a.EquityCurve)-1].Equity, a.Stats.FinalBalance)
}

func TestRun_ProgressCadence(t *testing.T) {
	in := Input{}
	for i := 0; i < 5; i++ {
		in.Markets = append(in.Markets, market(i, domain.OutcomeUp))
	}
	eng, err := New(domain.BacktestConfig{StartingBalance: 100, ProgressEvery: 2}, nil)
	require.NoError(t, err)

	var got []float64
	_, err = eng.Run(context.Background(), in, func(p float64) { got = append(got, p) })
	require.NoError(t, err)
	assert.Equal(t, []float64{40, 80, 100}, got)
}

func TestRun_EmptyInput(t *testing.T) {
	res := run(t, domain.BacktestConfig{StartingBalance: 500}, Input{})
	assert.Equal(t, 0, res.MarketsProcessed)
	assert.Equal(t, 500.0, res.Stats.FinalBalance)
	require.Len(t, res.EquityCurve, 1)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng, err := New(domain.BacktestConfig{StartingBalance: 1000}, nil)
	require.NoError(t, err)
	res, err := eng.Run(ctx, singleMarketInput(domain.OutcomeUp, 0.7), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, res.Trades)
	assert.Equal(t, 0, res.MarketsProcessed)
}

func TestRun_InvalidInput(t *testing.T) {
	m := market(0, domain.OutcomeUp)
	eng, err := New(domain.BacktestConfig{StartingBalance: 1000}, nil)
	require.NoError(t, err)

	_, err = eng.Run(context.Background(), Input{Markets: []domain.MarketRecord{m, m}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	bad := m
	bad.EndTime = m.StartTime.Add(-time.Second)
	_, err = eng.Run(context.Background(), Input{Markets: []domain.MarketRecord{bad}}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	bad := priceAbove("r1", 0.6, domain.SideYes, 10, 0)
	bad.Conditions[0].Field = "rsi"

	_, err := New(domain.BacktestConfig{StartingBalance: 1000, Rules: []domain.TradingRule{bad}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCondition)
}

func TestNew_AppliesDefaults(t *testing.T) {
	eng, err := New(domain.BacktestConfig{StartingBalance: 1000}, nil)
	require.NoError(t, err)
	cfg := eng.Config()
	assert.Equal(t, domain.DefaultFeeRate, cfg.FeeRate)
	assert.Equal(t, domain.ModeIndependent, cfg.Mode)
	assert.Zero(t, cfg.FallbackTTC)
}

func TestRun_ExclusiveDrawsOnlyUntilFirstBuy(t *testing.T) {
	m := market(0, domain.OutcomeUp)
	in := Input{
		Markets:   []domain.MarketRecord{m},
		Snapshots: map[string][]domain.PriceSnapshot{m.ID: snapsAt(m, []int{250}, []float64{0.5})},
	}
	coin := func(id string) domain.TradingRule {
		return domain.TradingRule{
			ID:      id,
			Action:  domain.Action{Side: domain.OrderBuy, Amount: 10},
			Enabled: true,
			Random:  &domain.RandomDecision{UpRatio: 0.5, TriggerAtTimeToClose: 60},
		}
	}
	src := &scriptedSource{values: []float64{0.2, 0.8}}
	cfg := domain.BacktestConfig{
		StartingBalance: 1000,
		Mode:            domain.ModeExclusive,
		Rules:           []domain.TradingRule{coin("first"), coin("second")},
	}

	eng, err := New(cfg, src)
	require.NoError(t, err)
	res, err := eng.Run(context.Background(), in, nil)
	require.NoError(t, err)

	b := buys(res.Trades)
	require.Len(t, b, 1)
	assert.Equal(t, "first", b[0].RuleID)
	assert.Equal(t, domain.SideYes, b[0].Side)
	assert.Equal(t, 1, src.i, "the second rule is never resolved once the first buys")
}
