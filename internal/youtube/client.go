// Package youtube adapts the YouTube Data API v3 to the provider interface.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"snaketunes-srv/internal/provider"
)

const (
	DataAPIBase = "https://www.googleapis.com/youtube/v3"
	UserAgent   = "snaketunes-srv/1.0"
)

// ErrQuotaExceeded is returned once the daily Data API quota is spent.
var ErrQuotaExceeded = errors.New("youtube data api quota exceeded")

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// Client is a thin, rate-limited Data API client.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	apiKey  string
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DataAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", UserAgent).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient, limiter: limiter, apiKey: cfg.APIKey}
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// get issues one GET and decodes the JSON body into out. Non-2xx answers and
// bodies that are not JSON are errors for this call only.
func (c *Client) get(ctx context.Context, op, path string, params map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("key", c.apiKey).
		Get(path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		if resp.StatusCode() == http.StatusForbidden && isQuotaError(resp.Body()) {
			return fmt.Errorf("%s: %w", op, ErrQuotaExceeded)
		}
		return provider.StatusError(op, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func isQuotaError(body []byte) bool {
	var ae apiError
	if err := json.Unmarshal(body, &ae); err != nil {
		return false
	}
	for _, e := range ae.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "rateLimitExceeded":
			return true
		}
	}
	return false
}
