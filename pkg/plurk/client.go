package plurk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"plurkbackup/pkg/config"
	errs "plurkbackup/pkg/errors"
	"plurkbackup/pkg/logger"
	"plurkbackup/pkg/retry"
)

// Caller invokes a Plurk API endpoint and returns the raw JSON body
type Caller interface {
	Call(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error)
}

// Client is an OAuth1-signed Plurk API client
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	retry      *retry.Config
	logger     logger.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the signing HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the transport retry policy
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client signing every request with the given credentials
func NewClient(cfg config.PlurkConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	oauthCfg := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	hc := oauthCfg.Client(context.Background(), token)
	hc.Timeout = cfg.Timeout

	c := &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  "plurkbackup/1.0",
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry == nil {
		c.retry = &retry.Config{MaxAttempts: 1, Logger: log}
	}
	return c
}

// Call POSTs form-encoded params to endpoint, retrying transient failures
func (c *Client) Call(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return retry.DoWithResult(ctx, c.retry, func(ctx context.Context) (json.RawMessage, error) {
		return c.call(ctx, endpoint, params)
	})
}

func (c *Client) call(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, endpoint, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugWithFields("API request failed", map[string]interface{}{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Transport(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	logger.LogRequest(c.logger, endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errs.Transport(endpoint, fmt.Errorf("failed to read response body: %w", err))
	}

	if err := checkResponseStatus(endpoint, resp.StatusCode, body); err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     endpoint,
			"body_preview": preview,
		})
		return nil, &errs.Error{Type: errs.ErrorTypeParsing, Op: endpoint, Message: "response is not valid JSON", Code: resp.StatusCode}
	}

	return json.RawMessage(body), nil
}

// checkResponseStatus maps a non-2xx status to a typed error. Plurk reports
// unknown users as 400 with an error_text mentioning "not found".
func checkResponseStatus(endpoint string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.ErrorText
	if msg == "" {
		msg = http.StatusText(status)
	}

	kind := errs.FromStatus(status)
	if status == http.StatusBadRequest && strings.Contains(strings.ToLower(msg), "not found") {
		kind = errs.ErrorTypeNotFound
	}

	return &errs.Error{Type: kind, Op: endpoint, Message: msg, Code: status}
}
