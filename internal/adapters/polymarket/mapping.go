package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/alejandrodnm/polyreplay/internal/domain"
)

// winnerPrice es el precio a partir del cual un outcome se considera ganador.
const winnerPrice = 0.99

// mapGammaMarket convierte un gammaMarket DTO a domain.MarketRecord.
func mapGammaMarket(g gammaMarket) domain.MarketRecord {
	m := domain.MarketRecord{
		ID:        g.ConditionID,
		Slug:      g.Slug,
		StartTime: parseTime(g.EventStartTime),
		EndTime:   parseTime(g.EndDate),
		Outcome:   resolvedOutcome(g),
	}
	if m.ID == "" {
		m.ID = g.ID
	}
	if m.StartTime.IsZero() {
		m.StartTime = parseTime(g.StartDate)
	}
	if v, err := g.Volume.Float64(); err == nil {
		m.Volume = v
	}
	var tokens []string
	if json.Unmarshal([]byte(g.ClobTokenIDs), &tokens) == nil && len(tokens) > 0 {
		m.YesTokenID = tokens[0]
	}
	return m
}

// resolvedOutcome devuelve el outcome cuyo precio final es ~1.
// Un mercado abierto o sin ganador claro queda sin resolver.
func resolvedOutcome(g gammaMarket) domain.Outcome {
	if !g.Closed {
		return domain.OutcomeUnresolved
	}
	var names, prices []string
	if json.Unmarshal([]byte(g.Outcomes), &names) != nil {
		return domain.OutcomeUnresolved
	}
	if json.Unmarshal([]byte(g.OutcomePrices), &prices) != nil {
		return domain.OutcomeUnresolved
	}
	for i, p := range prices {
		if i >= len(names) {
			break
		}
		v, err := strconv.ParseFloat(p, 64)
		if err == nil && v >= winnerPrice {
			return domain.ParseOutcome(names[i])
		}
	}
	return domain.OutcomeUnresolved
}

// parseTime acepta RFC3339 con o sin fracción; devuelve zero time si falla.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// mapOrderBooks indexa los books por token.
func mapOrderBooks(raw []orderBookResponse) map[string]domain.OrderBook {
	result := make(map[string]domain.OrderBook, len(raw))
	for _, r := range raw {
		result[r.AssetID] = domain.OrderBook{
			TokenID: r.AssetID,
			Bids:    mapBookEntries(r.Bids, false),
			Asks:    mapBookEntries(r.Asks, true),
		}
	}
	return result
}

// mapBookEntries descarta niveles vacíos y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		size, _ := strconv.ParseFloat(r.Size, 64)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})
	return entries
}
