package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	markets  []domain.MarketRecord
	snaps    map[string][]domain.PriceSnapshot
	outcomes []domain.OutcomeRecord
	err      error

	askedIDs    []string
	askedBefore time.Time
}

func (f *fakeSource) LoadMarkets(_ context.Context, _, _ time.Time) ([]domain.MarketRecord, error) {
	return f.markets, f.err
}

func (f *fakeSource) LoadSnapshots(_ context.Context, ids []string) (map[string][]domain.PriceSnapshot, error) {
	f.askedIDs = ids
	return f.snaps, nil
}

func (f *fakeSource) LoadOutcomes(_ context.Context, before time.Time) ([]domain.OutcomeRecord, error) {
	f.askedBefore = before
	return f.outcomes, nil
}

func TestLoadInput(t *testing.T) {
	m0, m1 := market(0, domain.OutcomeUp), market(1, domain.OutcomeDown)
	src := &fakeSource{
		markets:  []domain.MarketRecord{m0, m1},
		snaps:    map[string][]domain.PriceSnapshot{m0.ID: snapsAt(m0, []int{60}, []float64{0.5})},
		outcomes: []domain.OutcomeRecord{{Slug: "old", StartTime: t0.Add(-time.Hour), Outcome: domain.OutcomeUp}},
	}
	to := t0.Add(time.Hour)

	in, err := LoadInput(context.Background(), src, t0, to)
	require.NoError(t, err)
	assert.Len(t, in.Markets, 2)
	assert.Len(t, in.Snapshots[m0.ID], 1)
	assert.Len(t, in.Outcomes, 1)
	assert.Equal(t, []string{"m0", "m1"}, src.askedIDs)
	assert.Equal(t, to, src.askedBefore)
}

func TestLoadInput_PropagatesError(t *testing.T) {
	boom := errors.New("disk on fire")
	_, err := LoadInput(context.Background(), &fakeSource{err: boom}, t0, t0.Add(time.Hour))
	assert.ErrorIs(t, err, boom)
}
