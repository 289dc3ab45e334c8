package polymarket

// client.go — transporte compartido de los tres endpoints que usa el replay:
//
//	Gamma GET  /markets?slug=    resolución de cada mercado (importer)
//	CLOB  GET  /prices-history   serie de precios del token Up (importer)
//	CLOB  POST /books            orderbooks en vivo (collector)
//
// Cada endpoint tiene su propio limiter: un backfill de meses pega miles de
// veces a /markets y /prices-history, y el collector no debe quedarse sin
// cupo de /books mientras tanto.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Límites al 60% de los documentados.
	// Gamma /markets: 300/10s → 18/s
	gammaMarketsPerSec = 18
	gammaMarketsBurst  = 10
	// CLOB /prices-history: 1000/10s → 60/s
	historyPerSec = 60
	historyBurst  = 20
	// CLOB /books: 500/10s → 30/s
	booksPerSec = 30
	booksBurst  = 10

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
	maxRetryAfter = 10 * time.Second
)

// endpoint agrupa el nombre que sale en logs y errores con su limiter.
type endpoint struct {
	name    string
	limiter *rate.Limiter
}

// StatusError es una respuesta 4xx que no se reintenta.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, e.Body)
}

// Client habla con Gamma y con el CLOB. Implementa ports.MarketProvider,
// ports.PriceHistoryProvider y ports.BookProvider.
type Client struct {
	http      *http.Client
	clobBase  string
	gammaBase string

	markets   endpoint
	history   endpoint
	books     endpoint
	retryWait time.Duration
}

// NewClient crea un Client. Bases vacías usan producción.
func NewClient(clobBase, gammaBase string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		clobBase:  clobBase,
		gammaBase: gammaBase,
		markets:   endpoint{name: "gamma " + gammaMarketsPath, limiter: rate.NewLimiter(gammaMarketsPerSec, gammaMarketsBurst)},
		history:   endpoint{name: "clob " + pricesHistoryPath, limiter: rate.NewLimiter(historyPerSec, historyBurst)},
		books:     endpoint{name: "clob " + booksPath, limiter: rate.NewLimiter(booksPerSec, booksBurst)},
		retryWait: baseRetryWait,
	}
}

func (c *Client) get(ctx context.Context, ep endpoint, url string, out any) error {
	return c.do(ctx, ep, out, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

func (c *Client) post(ctx context.Context, ep endpoint, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal body: %w", ep.name, err)
	}
	return c.do(ctx, ep, out, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// do manda el request hasta maxRetries+1 veces. 429 y 5xx se reintentan con
// backoff exponencial (un Retry-After del 429 manda sobre el backoff); el
// resto de 4xx vuelve como *StatusError sin reintentar.
func (c *Client) do(ctx context.Context, ep endpoint, out any, build func() (*http.Request, error)) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying request", "endpoint", ep.name, "attempt", attempt, "err", lastErr)
		}
		if err := ep.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", ep.name, err)
		}

		req, err := build()
		if err != nil {
			return fmt.Errorf("%s: build request: %w", ep.name, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			c.wait(ctx, c.backoff(attempt))
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			slog.Warn("rate limited", "endpoint", ep.name, "attempt", attempt+1)
			c.wait(ctx, retryAfter(resp.Header, c.backoff(attempt)))
			continue
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			c.wait(ctx, c.backoff(attempt))
			continue
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
			resp.Body.Close()
			return &StatusError{Endpoint: ep.name, Code: resp.StatusCode, Body: string(body)}
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%s: decode response: %w", ep.name, err)
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", ep.name, err)
	}
	return fmt.Errorf("%s: failed after %d retries: %w", ep.name, maxRetries, lastErr)
}

func (c *Client) backoff(attempt int) time.Duration {
	return c.retryWait << attempt
}

// retryAfter lee el Retry-After en segundos; sin header válido usa fallback.
func retryAfter(h http.Header, fallback time.Duration) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return fallback
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter)
}

func (c *Client) wait(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
