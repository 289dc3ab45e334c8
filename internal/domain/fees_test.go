package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeePerShare_PeaksAtHalf(t *testing.T) {
	// 0.5 × 0.5 × 0.0625 = 0.015625
	assert.InDelta(t, 0.015625, FeePerShare(0.5, DefaultFeeRate), 1e-12)
	assert.Less(t, FeePerShare(0.3, DefaultFeeRate), FeePerShare(0.5, DefaultFeeRate))
	assert.InDelta(t, FeePerShare(0.3, DefaultFeeRate), FeePerShare(0.7, DefaultFeeRate), 1e-12)
}

func TestFeePerShare_ZeroAtExtremes(t *testing.T) {
	assert.Equal(t, 0.0, FeePerShare(0, DefaultFeeRate))
	assert.Equal(t, 0.0, FeePerShare(1, DefaultFeeRate))
}

func TestBuyCost(t *testing.T) {
	// 80 × 0.62 = 49.6; fee = 0.62 × 0.38 × 0.0625 × 80 = 1.178
	assert.InDelta(t, 1.178, OrderFee(0.62, 80, DefaultFeeRate), 1e-9)
	assert.InDelta(t, 50.778, BuyCost(0.62, 80, DefaultFeeRate), 1e-9)
}

func TestSellProceeds(t *testing.T) {
	// 100 × 0.4 = 40; fee = 0.4 × 0.6 × 0.0625 × 100 = 1.5
	assert.InDelta(t, 38.5, SellProceeds(0.4, 100, DefaultFeeRate), 1e-9)
}
