// Package forex fetches spot rates from the NBP (Narodowy Bank Polski) table A
// API. Every rate is quoted against PLN.
package forex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"minibank/internal/errors"
	"minibank/internal/observability"
)

const (
	DefaultBaseURL           = "https://api.nbp.pl"
	DefaultReferenceCurrency = "PLN"

	defaultTimeout = 5 * time.Second
)

// Config captures tunables for the client. Zero values get defaults.
type Config struct {
	BaseURL           string
	ReferenceCurrency string
	Timeout           time.Duration
	// RequestsPerSecond caps outbound calls; 0 disables the limiter.
	RequestsPerSecond float64
	Burst             int
}

type Client struct {
	baseURL   string
	reference string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ReferenceCurrency == "" {
		cfg.ReferenceCurrency = DefaultReferenceCurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		reference: strings.ToUpper(cfg.ReferenceCurrency),
		http:      newHTTPClient(cfg.Timeout),
		limiter:   limiter,
		logger:    logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout / 2,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout / 2,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}

// ReferenceCurrency is the currency every spot rate is quoted against.
func (c *Client) ReferenceCurrency() string { return c.reference }

type tableResponse struct {
	Table    string `json:"table"`
	Currency string `json:"currency"`
	Code     string `json:"code"`
	Rates    []struct {
		No            string          `json:"no"`
		EffectiveDate string          `json:"effectiveDate"`
		Mid           decimal.Decimal `json:"mid"`
	} `json:"rates"`
}

// GetSpotRate returns how many units of the reference currency one unit of
// code is worth. The reference currency itself is 1 without a network call.
func (c *Client) GetSpotRate(code string) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == c.reference {
		return decimal.NewFromInt(1), nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return decimal.Zero, c.fail(code, "rate_limited", err)
		}
	}

	endpoint := fmt.Sprintf("%s/api/exchangerates/rates/a/%s/?format=json", c.baseURL, url.PathEscape(code))

	start := time.Now()
	resp, err := c.http.Get(endpoint)
	if err != nil {
		return decimal.Zero, c.fail(code, "request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, c.fail(code, "status", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, c.fail(code, "decode", err)
	}
	if len(body.Rates) == 0 || !body.Rates[0].Mid.IsPositive() {
		return decimal.Zero, c.fail(code, "empty", fmt.Errorf("no rate published for %s", code))
	}

	observability.ForexRequests.WithLabelValues("success").Inc()
	c.logger.Info("Fetched spot rate",
		"currency", code,
		"mid", body.Rates[0].Mid,
		"effective_date", body.Rates[0].EffectiveDate,
		"duration", time.Since(start))
	return body.Rates[0].Mid, nil
}

func (c *Client) fail(code, stage string, err error) error {
	observability.ForexRequests.WithLabelValues(stage).Inc()
	c.logger.Error("Failed to fetch spot rate", "currency", code, "stage", stage, "error", err)
	return errors.ErrExternalDependency.Wrap(fmt.Errorf("spot rate for %s: %w", code, err))
}
