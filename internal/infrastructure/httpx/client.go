// Package httpx is the JSON-over-HTTP transport shared by the LLM and speech
// adapters. Every call goes through the resilience executor and non-2xx
// responses surface as *StatusError.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
)

const maxErrorBody = 2048

type Client struct {
	service    string
	baseURL    string
	headers    http.Header
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Client)

func WithBearerToken(token string) Option {
	return func(c *Client) {
		if strings.TrimSpace(token) != "" {
			c.headers.Set("Authorization", "Bearer "+strings.TrimSpace(token))
		}
	}
}

func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Set(key, value)
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// New creates a client for service rooted at baseURL. service prefixes error
// messages and breaker names.
func New(service, baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	c := &Client{
		service:    service,
		baseURL:    strings.TrimRight(baseURL, "/"),
		headers:    make(http.Header),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Service() string {
	return c.service
}

// PostJSON sends payload and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, path string, payload any, out any, operation string) error {
	raw, err := c.PostJSONRaw(ctx, path, payload, operation)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", c.service, operation, err)
	}
	return nil
}

// PostJSONRaw sends payload and returns the undecoded response body.
func (c *Client) PostJSONRaw(ctx context.Context, path string, payload any, operation string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s %s request: %w", c.service, operation, err)
	}
	return c.do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// Get issues a GET with the given query and returns the response body.
func (c *Client) Get(ctx context.Context, path string, query url.Values, operation string) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, operation, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

func (c *Client) do(ctx context.Context, operation string, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	name := c.service + "." + operation
	out, err := resilience.Call(ctx, c.executor, name, func(ctx context.Context) ([]byte, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("create %s %s request: %w", c.service, operation, err)
		}
		for key, values := range c.headers {
			for _, v := range values {
				req.Header.Add(key, v)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s request: %w", c.service, operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, newStatusError(c.service, operation, resp)
		}
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s %s response: %w", c.service, operation, err)
		}
		return raw, nil
	}, Classify)
	return out, WrapTemporaryIfNeeded(name, err)
}
