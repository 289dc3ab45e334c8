package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOutcome(t *testing.T) {
	assert.Equal(t, OutcomeUp, ParseOutcome("Up"))
	assert.Equal(t, OutcomeUp, ParseOutcome("yes"))
	assert.Equal(t, OutcomeDown, ParseOutcome("DOWN"))
	assert.Equal(t, OutcomeUnresolved, ParseOutcome(""))
	assert.Equal(t, OutcomeUnresolved, ParseOutcome("maybe"))
	assert.False(t, OutcomeUnresolved.Resolved())
}

func TestOutcome_WinningSide(t *testing.T) {
	assert.Equal(t, SideYes, OutcomeUp.WinningSide())
	assert.Equal(t, SideNo, OutcomeDown.WinningSide())
}

func TestPriceSnapshot_FallsBackToBid(t *testing.T) {
	s := PriceSnapshot{BestBidYes: 0.48, BestAskYes: 0.52}
	assert.Equal(t, 0.48, s.PriceYes())
	assert.True(t, s.Usable())
	assert.InDelta(t, 0.04, s.Spread(), 1e-12)

	s.MidYes = 0.5
	assert.Equal(t, 0.5, s.PriceYes())
}

func TestPriceSnapshot_Unusable(t *testing.T) {
	assert.False(t, PriceSnapshot{}.Usable())
	assert.False(t, PriceSnapshot{MidYes: 1}.Usable())
	assert.False(t, PriceSnapshot{MidYes: -0.1}.Usable())
}

func TestPriceSnapshot_SpreadNeverNegative(t *testing.T) {
	assert.Equal(t, 0.0, PriceSnapshot{BestBidYes: 0.6, BestAskYes: 0.5}.Spread())
}

func TestNewMarketContext(t *testing.T) {
	start := time.Date(2025, 10, 9, 8, 55, 0, 0, time.UTC)
	m := MarketRecord{StartTime: start, EndTime: start.Add(5 * time.Minute), Volume: 1200}
	s := PriceSnapshot{RecordedAt: start.Add(3 * time.Minute), MidYes: 0.7, BestBidYes: 0.69, BestAskYes: 0.71}

	ctx := NewMarketContext(m, s, 0.6)
	assert.Equal(t, 0.7, ctx.PriceYes)
	assert.InDelta(t, 0.3, ctx.PriceNo, 1e-12)
	assert.InDelta(t, 0.02, ctx.Spread, 1e-12)
	assert.Equal(t, 1200.0, ctx.Volume)
	assert.Equal(t, 120.0, ctx.TimeToClose)
	assert.Equal(t, 0.6, ctx.AOI)
	assert.InDelta(t, 0.3, ctx.PriceFor(SideNo), 1e-12)
	assert.Equal(t, 0.7, ctx.PriceFor(SideYes))
}

func TestTimeToClose_ClampsAtZero(t *testing.T) {
	end := time.Date(2025, 10, 9, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 0.0, TimeToClose(end, end.Add(time.Second)))
}

func TestTradingRule_MatchesSlug(t *testing.T) {
	tests := []struct {
		filter string
		slug   string
		want   bool
	}{
		{"*", "eth-updown-5m-1", true},
		{"", "anything", true},
		{"btc-updown-5m-*", "btc-updown-5m-1760000100", true},
		{"btc-updown-5m-*", "eth-updown-5m-1760000100", false},
		{"btc-updown-5m-1760000100", "btc-updown-5m-1760000100", true},
		{"btc-updown-5m-1760000100", "btc-updown-5m-1760000400", false},
	}
	for _, tc := range tests {
		r := TradingRule{MarketFilter: tc.filter}
		assert.Equal(t, tc.want, r.MatchesSlug(tc.slug), "%s vs %s", tc.filter, tc.slug)
	}
}
