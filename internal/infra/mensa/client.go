// Package mensa talks to the menu scraping backend over HTTP. The backend
// does the HTML scraping; this client only moves JSON.
package mensa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kmein/menstruation-telegram/internal/domain"
	"github.com/kmein/menstruation-telegram/internal/domain/model"
	"github.com/kmein/menstruation-telegram/internal/domain/ports/adapter"
	"github.com/kmein/menstruation-telegram/internal/infra/metrics"
)

// Cache is the payload cache the client composes (redis in production).
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Store(ctx context.Context, key, payload string) error
}

var _ adapter.MenuService = (*Client)(nil)

// Client implements the MenuService port. Every real HTTP call waits on the
// shared limiter; cache hits bypass it. Failures of the transport or decoder
// come back wrapped in domain.ErrUpstream so the delivery pipeline retries
// them.
type Client struct {
	endpoint   string
	http       *http.Client
	menuCache  Cache // short TTL
	tableCache Cache // codes + allergens, long TTL
	limiter    *rate.Limiter
	log        *zerolog.Logger
}

func NewClient(endpoint string, timeout time.Duration, menuCache, tableCache Cache, limiter *rate.Limiter, logger *zerolog.Logger) *Client {
	compLog := logger.With().Str("component", "MensaClient").Logger()
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		http:       &http.Client{Timeout: timeout},
		menuCache:  menuCache,
		tableCache: tableCache,
		limiter:    limiter,
		log:        &compLog,
	}
}

func (c *Client) GetMenu(ctx context.Context, mensaCode int, q model.Query) ([]model.MealGroup, error) {
	params := q.Params()
	params.Set("mensa", strconv.Itoa(mensaCode))
	body, err := c.fetch(ctx, c.menuCache, "/menu", params)
	if err != nil {
		return nil, err
	}
	var groups []model.MealGroup
	if err := json.Unmarshal([]byte(body), &groups); err != nil {
		return nil, fmt.Errorf("%w: decode menu: %v", domain.ErrUpstream, err)
	}
	return groups, nil
}

type mensaEntry struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

type uniEntry struct {
	Name  string       `json:"name"`
	Items []mensaEntry `json:"items"`
}

func (c *Client) GetMensas(ctx context.Context, pattern string) (map[int]string, error) {
	params := url.Values{}
	if pattern != "" {
		params.Set("pattern", pattern)
	}
	body, err := c.fetch(ctx, c.tableCache, "/codes", params)
	if err != nil {
		return nil, err
	}
	var unis []uniEntry
	if err := json.Unmarshal([]byte(body), &unis); err != nil {
		return nil, fmt.Errorf("%w: decode codes: %v", domain.ErrUpstream, err)
	}
	codeName := make(map[int]string)
	for _, uni := range unis {
		for _, m := range uni.Items {
			// Coffee bars share codes with their canteens and only clutter
			// the chooser.
			if strings.Contains(m.Name, "Coffeebar") {
				continue
			}
			codeName[m.Code] = m.Name
		}
	}
	return codeName, nil
}

type allergenEntry struct {
	Number int     `json:"number"`
	Index  *string `json:"index"`
	Name   string  `json:"name"`
}

func (c *Client) GetAllergens(ctx context.Context) (map[string]string, error) {
	body, err := c.fetch(ctx, c.tableCache, "/allergens", url.Values{})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Items []allergenEntry `json:"items"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("%w: decode allergens: %v", domain.ErrUpstream, err)
	}
	numberName := make(map[string]string, len(payload.Items))
	for _, a := range payload.Items {
		code := strconv.Itoa(a.Number)
		if a.Index != nil {
			code += *a.Index
		}
		numberName[code] = a.Name
	}
	return numberName, nil
}

// fetch returns the raw body for path+params, from cache when possible.
func (c *Client) fetch(ctx context.Context, cache Cache, path string, params url.Values) (string, error) {
	cacheKey := path
	if enc := params.Encode(); enc != "" {
		cacheKey += "?" + enc
	}
	if cache != nil {
		if body, ok := cache.Get(ctx, cacheKey); ok {
			metrics.IncMensaRequest(path, true)
			return body, nil
		}
	}
	metrics.IncMensaRequest(path, false)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	u := c.endpoint + cacheKey
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	c.log.Debug().Str("url", u).Int("status", resp.StatusCode).Msg("backend request")
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d from %s", domain.ErrUpstream, resp.StatusCode, path)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrUpstream, err)
	}
	body := string(b)
	if cache != nil {
		if err := cache.Store(ctx, cacheKey, body); err != nil {
			c.log.Warn().Err(err).Str("key", cacheKey).Msg("cache store failed")
		}
	}
	return body, nil
}
