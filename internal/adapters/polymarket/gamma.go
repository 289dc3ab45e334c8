package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

const (
	gammaMarketsPath = "/markets"

	// Los mercados up/down duran 5 minutos; Gamma no siempre trae endDate exacto.
	updownDuration = 5 * time.Minute
)

// ErrMarketNotFound se devuelve cuando Gamma no conoce el slug.
var ErrMarketNotFound = errors.New("gamma market not found")

// FetchMarketBySlug obtiene un mercado por slug. Implementa ports.MarketProvider.
func (c *Client) FetchMarketBySlug(ctx context.Context, slug string) (domain.MarketRecord, error) {
	u := fmt.Sprintf("%s%s?slug=%s", c.gammaBase, gammaMarketsPath, url.QueryEscape(slug))

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.markets, u, &resp); err != nil {
		return domain.MarketRecord{}, fmt.Errorf("gamma.FetchMarketBySlug %s: %w", slug, err)
	}
	if len(resp) == 0 {
		return domain.MarketRecord{}, fmt.Errorf("gamma.FetchMarketBySlug %s: %w", slug, ErrMarketNotFound)
	}

	m := mapGammaMarket(resp[0])
	if !m.StartTime.IsZero() && (m.EndTime.IsZero() || m.EndTime.Sub(m.StartTime) > updownDuration) {
		m.EndTime = m.StartTime.Add(updownDuration)
	}
	return m, nil
}
