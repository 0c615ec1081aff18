// Package dexscreener is a client for the DexScreener public market-data API.
package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"ton-buy-tracker/internal/retry"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.dexscreener.com"
	DefaultChain   = "ton"
	DefaultTimeout = 20 * time.Second
)

// Client fetches pair data.
type Client struct {
	baseURL string
	chain   string
	client  *http.Client
	retry   retry.Config
	logger  *zap.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithRetry sets the retry policy.
func WithRetry(cfg retry.Config) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithChain sets the chain id used by the token-pairs endpoint.
func WithChain(chain string) ClientOption {
	return func(c *Client) {
		c.chain = chain
	}
}

// NewClient creates a DexScreener client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		chain:   DefaultChain,
		client:  &http.Client{Timeout: DefaultTimeout},
		retry:   retry.DefaultConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var errStatus = errors.New("dexscreener: unexpected status")

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return retry.WithBackoff(ctx, c.retry, c.logger, "dexscreener "+path, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("%w %d", errStatus, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(fmt.Errorf("%w %d", errStatus, resp.StatusCode))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return retry.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		return nil
	})
}

// TokenPairs calls /token-pairs/v1/{chain}/{token}.
func (c *Client) TokenPairs(ctx context.Context, token string) ([]Pair, error) {
	var pairs []Pair
	path := "/token-pairs/v1/" + url.PathEscape(c.chain) + "/" + url.PathEscape(token)
	if err := c.getJSON(ctx, path, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// LatestTokenPairs calls /latest/dex/tokens/{token}.
func (c *Client) LatestTokenPairs(ctx context.Context, token string) ([]Pair, error) {
	var resp struct {
		Pairs []Pair `json:"pairs"`
	}
	if err := c.getJSON(ctx, "/latest/dex/tokens/"+url.PathEscape(token), &resp); err != nil {
		return nil, err
	}
	return resp.Pairs, nil
}

// Pairs returns pairs for a token from the primary endpoint, falling back to the
// latest endpoint when the primary fails or returns nothing.
func (c *Client) Pairs(ctx context.Context, token string) ([]Pair, error) {
	pairs, err := c.TokenPairs(ctx, token)
	if err == nil && len(pairs) > 0 {
		return pairs, nil
	}
	if err != nil {
		c.logger.Debug("token-pairs failed, using fallback", zap.String("token", token), zap.Error(err))
	}

	fallback, ferr := c.LatestTokenPairs(ctx, token)
	if ferr != nil {
		if err != nil {
			return nil, errors.Join(err, ferr)
		}
		return nil, ferr
	}
	return fallback, nil
}
