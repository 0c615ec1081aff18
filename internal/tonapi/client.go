package tonapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ton-buy-tracker/internal/jsontree"
	"ton-buy-tracker/internal/retry"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://tonapi.io"
	DefaultTimeout = 20 * time.Second
)

// HTTPClient implements Source over the TonAPI REST interface.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   retry.Config
	logger  *zap.Logger
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg retry.Config) ClientOption {
	return func(c *HTTPClient) {
		c.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a TonAPI client. An empty baseURL selects DefaultBaseURL.
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		retry:   retry.DefaultConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusError is an unexpected HTTP status.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("tonapi: unexpected status %d: %s", e.Code, e.Body)
}

// get performs a GET, retrying transport errors, 429 and 5xx with backoff.
func (c *HTTPClient) get(ctx context.Context, path string, query url.Values) (jsontree.Value, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var out jsontree.Value
	err := retry.WithBackoff(ctx, c.retry, c.logger, "tonapi "+path, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			return fmt.Errorf("http request: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return retry.Permanent(fmt.Errorf("%s: %w", path, ErrNotFound))
		case resp.StatusCode == http.StatusTooManyRequests:
			return errors.New("rate limited (429)")
		case resp.StatusCode >= 500:
			return &statusError{Code: resp.StatusCode, Body: truncate(body)}
		case resp.StatusCode != http.StatusOK:
			return retry.Permanent(&statusError{Code: resp.StatusCode, Body: truncate(body)})
		}

		v, err := jsontree.Parse(body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("decode %s: %w", path, err))
		}
		out = v
		return nil
	})
	if err != nil {
		return jsontree.Value{}, err
	}
	return out, nil
}

func truncate(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

// AccountTransactions returns up to limit most recent transactions of an account.
// Records without a readable lt are skipped.
func (c *HTTPClient) AccountTransactions(ctx context.Context, account string, limit int) ([]Transaction, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	root, err := c.get(ctx, "/v2/blockchain/accounts/"+url.PathEscape(account)+"/transactions", q)
	if err != nil {
		return nil, err
	}

	list, ok := root.First("transactions", "items")
	if !ok && root.Kind() == jsontree.Array {
		list = root
	}

	var txs []Transaction
	for _, item := range list.Items() {
		if tx, ok := transactionFromTree(item); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// Trace returns the raw trace tree.
func (c *HTTPClient) Trace(ctx context.Context, traceID string) (jsontree.Value, error) {
	return c.get(ctx, "/v2/traces/"+url.PathEscape(traceID), nil)
}

// JettonInfo returns holders count and metadata for a jetton master.
func (c *HTTPClient) JettonInfo(ctx context.Context, jetton string) (*JettonInfo, error) {
	root, err := c.get(ctx, "/v2/jettons/"+url.PathEscape(jetton), nil)
	if err != nil {
		return nil, err
	}
	return jettonInfoFromTree(root), nil
}

// TONPriceUSD returns the current TON/USD rate.
func (c *HTTPClient) TONPriceUSD(ctx context.Context) (float64, error) {
	q := url.Values{}
	q.Set("tokens", "ton")
	q.Set("currencies", "usd")

	root, err := c.get(ctx, "/v2/rates", q)
	if err != nil {
		return 0, err
	}

	rates, _ := root.Get("rates")
	ton, ok := rates.GetFold("TON")
	if !ok {
		return 0, fmt.Errorf("rates: TON missing")
	}
	prices, _ := ton.Get("prices")
	usd, ok := prices.GetFold("USD")
	if !ok {
		return 0, fmt.Errorf("rates: USD price missing")
	}
	txt, ok := usd.Text()
	if !ok {
		return 0, fmt.Errorf("rates: USD price is %s", usd.Kind())
	}
	price, err := strconv.ParseFloat(txt, 64)
	if err != nil {
		return 0, fmt.Errorf("rates: %w", err)
	}
	return price, nil
}

var _ Source = (*HTTPClient)(nil)
