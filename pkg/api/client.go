// Package api provides the HTTP client for the remote commerce API with
// retries, response caching and request collapsing.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/storefront/pkg/cache"
	"github.com/Sternrassler/storefront/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// maxResponseSize bounds the body read from the API.
	maxResponseSize = 16 << 20

	// sharedCallTimeout bounds a collapsed GET, retries included.
	sharedCallTimeout = 2 * time.Minute
)

// Config holds the client configuration.
type Config struct {
	// Gateway is the base URL of the commerce API.
	Gateway string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// Cache serves GET requests made with useCache. Optional.
	Cache cache.Backend

	// MaxRetries caps the retries after the initial attempt.
	// Zero keeps the per-class default, a negative value disables retries.
	MaxRetries int

	// InitialBackoff overrides the per-class initial backoff when set.
	InitialBackoff time.Duration

	// HTTPClient replaces the default HTTP client.
	HTTPClient *http.Client
}

// DefaultConfig returns a default configuration for gateway.
func DefaultConfig(gateway, token string) Config {
	return Config{
		Gateway: gateway,
		Token:   token,
		Timeout: 30 * time.Second,
	}
}

// Client talks to the commerce API.
type Client struct {
	httpClient *http.Client
	gateway    string
	config     Config
	cache      cache.Backend
	group      singleflight.Group
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.Gateway == "" {
		return nil, fmt.Errorf("gateway is required")
	}
	u, err := url.Parse(cfg.Gateway)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway %q", cfg.Gateway)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		gateway:    strings.TrimRight(cfg.Gateway, "/"),
		config:     cfg,
		cache:      cfg.Cache,
		logger:     logging.NewLogger("api-client"),
	}, nil
}

// URL returns the absolute URL of path.
func (c *Client) URL(path string) string {
	return c.gateway + "/" + strings.TrimLeft(path, "/")
}

// Call performs one API request. A non-nil payload is sent as JSON.
//
// The decoded response is returned as raw JSON; an empty body yields nil.
// Failures surface as *ResponseError: status >= 400 carries the status and
// the API's message, a body that is not JSON carries MessageInvalidJSON and
// the raw body. Server, rate limit and network failures are retried.
func (c *Client) Call(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}

	target := c.URL(path)
	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	var (
		status  int
		rawBody []byte
	)

	err := retryWithBackoff(ctx, c.logger, c.retryConfig, func() (ErrorClass, error) {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.config.Token != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.Token)
		}
		if lang := ScopeFrom(ctx).Language; lang != "" {
			req.Header.Set("Accept-Language", lang)
		}

		c.logger.Debug().Str("method", method).Str("path", path).Msg("Executing API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			}
			class := classify(0, err)
			apiErrorsTotal.WithLabelValues(string(class)).Inc()
			apiRequestsTotal.WithLabelValues(method, "network_error").Inc()
			c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
			return class, &ResponseError{Class: class, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			class := classify(0, err)
			apiErrorsTotal.WithLabelValues(string(class)).Inc()
			return class, &ResponseError{StatusCode: resp.StatusCode, Class: class, Message: "read response", Err: err}
		}

		status, rawBody = resp.StatusCode, data
		apiRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()

		class := classify(status, nil)
		if class == "" {
			return "", nil
		}

		apiErrorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Warn().
			Str("path", path).
			Int("status", status).
			Str("error_class", string(class)).
			Msg("API request error")
		return class, responseError(status, class, data)
	})
	if err != nil {
		return nil, err
	}

	if len(rawBody) == 0 {
		return nil, nil
	}
	if !json.Valid(rawBody) {
		apiErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &ResponseError{
			StatusCode: status,
			Class:      ErrorClassDecode,
			Message:    MessageInvalidJSON,
			RawBody:    rawBody,
		}
	}
	return json.RawMessage(rawBody), nil
}

// responseError builds the error for a status >= 400.
func responseError(status int, class ErrorClass, body []byte) *ResponseError {
	e := &ResponseError{
		StatusCode: status,
		Class:      class,
		Message:    http.StatusText(status),
		RawBody:    body,
	}

	var decoded struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &decoded) == nil && decoded.Message != "" {
		e.Message = decoded.Message
	}
	return e
}

// retryConfig applies the client overrides to the per-class configuration.
func (c *Client) retryConfig(class ErrorClass) RetryConfig {
	rc := RetryConfigForErrorClass(class)
	switch {
	case c.config.MaxRetries < 0:
		rc.MaxAttempts = 1
	case c.config.MaxRetries > 0:
		rc.MaxAttempts = c.config.MaxRetries + 1
	}
	if c.config.InitialBackoff > 0 {
		rc.InitialBackoff = c.config.InitialBackoff
		if rc.MaxBackoff < rc.InitialBackoff {
			rc.MaxBackoff = rc.InitialBackoff
		}
	}
	return rc
}

// Get performs a GET request. With useCache the response is served from and
// stored in the configured cache, keyed by gateway, path and the Scope of
// ctx. Concurrent identical requests share one call.
func (c *Client) Get(ctx context.Context, path string, useCache bool) (json.RawMessage, error) {
	useCache = useCache && c.cache != nil
	key := c.cacheKey(ctx, path)

	if useCache {
		var cached json.RawMessage
		err := c.cache.Load(ctx, key, &cached)
		if err == nil {
			c.logger.Debug().Str("path", path).Str("shop", key.Shop).Msg("Serving API response from cache")
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("path", path).Msg("Cache load error")
		}
	}

	// The shared call outlives any single caller; each caller stops waiting
	// when its own context ends.
	ch := c.group.DoChan(key.flightKey(), func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()

		data, err := c.Call(callCtx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}
		if useCache && data != nil {
			if err := c.cache.Save(callCtx, key, data); err != nil {
				c.logger.Warn().Err(err).Str("path", path).Msg("Failed to cache API response")
			}
		}
		return data, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			apiCollapsedTotal.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		data, _ := res.Val.(json.RawMessage)
		return data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	}
}

// Post sends payload with POST.
func (c *Client) Post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodPost, path, payload)
}

// Put sends payload with PUT.
func (c *Client) Put(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodPut, path, payload)
}

// Patch sends payload with PATCH.
func (c *Client) Patch(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodPatch, path, payload)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Call(ctx, http.MethodDelete, path, nil)
}
