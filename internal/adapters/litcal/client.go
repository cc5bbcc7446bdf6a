// Package litcal — клиент внешнего поставщика литургического календаря.
package litcal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chapel-liturgy/internal/domain"
	"chapel-liturgy/internal/infra/metrics"
)

const defaultBaseURL = "https://www.missalemeum.com/pl/api/v5/calendar"

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client запрашивает у поставщика календарь целого года одним GET.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ domain.CalendarProvider = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

func (c *Client) SetHTTPClient(httpClient *http.Client) {
	if httpClient != nil {
		c.httpClient = httpClient
	}
}

// FetchYear возвращает сырые записи календаря. Не-2xx, таймаут и битый JSON — ошибка ErrUpstream.
func (c *Client) FetchYear(ctx context.Context, year int) ([]domain.RawFeast, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := c.cfg.BaseURL + "/" + strconv.Itoa(year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveNetworkRequest("litcal", "fetch_year", strconv.Itoa(year), start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: execute request: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var feasts []domain.RawFeast
	if err := json.NewDecoder(resp.Body).Decode(&feasts); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	return feasts, nil
}
