package polymarket

import "encoding/json"

// DTOs raw de Gamma y del CLOB. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado up/down de Gamma.
// outcomes y outcomePrices llegan como arrays JSON serializados en un string.
type gammaMarket struct {
	ID             string      `json:"id"`
	ConditionID    string      `json:"conditionId"`
	Slug           string      `json:"slug"`
	StartDate      string      `json:"startDate"`
	EventStartTime string      `json:"eventStartTime"`
	EndDate        string      `json:"endDate"`
	Outcomes       string      `json:"outcomes"`
	OutcomePrices  string      `json:"outcomePrices"`
	ClobTokenIDs   string      `json:"clobTokenIds"`
	Volume         json.Number `json:"volume"`
	Active         bool        `json:"active"`
	Closed         bool        `json:"closed"`
}

// pricesHistoryResponse es la respuesta de GET /prices-history del CLOB.
type pricesHistoryResponse struct {
	History []pricePoint `json:"history"`
}

// pricePoint es un punto de la serie: t en unix segundos, p precio del token.
type pricePoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

// orderBookRequest es el body del POST /books batch.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es un item de la respuesta de POST /books.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw (strings para no perder precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
