package client

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

	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/models"
)

type HTTPClient struct {
	baseURL string
	httpc   *http.Client
	token   func() string
	prober  HealthProber
}

type Option func(*HTTPClient)

// WithTransport routes requests through rt, e.g. the background transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) { c.httpc.Transport = rt }
}

// WithTimeout bounds every request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpc.Timeout = d }
}

// WithToken supplies the bearer token sent with each request.
func WithToken(fn func() string) Option {
	return func(c *HTTPClient) { c.token = fn }
}

// WithProber makes Ping use p instead of GET /api/health.
func WithProber(p HealthProber) Option {
	return func(c *HTTPClient) { c.prober = p }
}

func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	if c.prober != nil {
		return c.prober.Check(ctx)
	}
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *HTTPClient) Create(ctx context.Context, entity string, payload json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/"+entity, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Patch(ctx context.Context, entity, id string, partial json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPatch, "/api/"+entity+"/"+url.PathEscape(id), partial, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Delete(ctx context.Context, entity, id string) (bool, error) {
	var out models.DeleteResult
	if err := c.do(ctx, http.MethodDelete, "/api/"+entity+"/"+url.PathEscape(id), nil, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

func (c *HTTPClient) List(ctx context.Context, entity, cursor string, limit int) (*models.Page[json.RawMessage], error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/" + entity
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out models.Page[json.RawMessage]
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Sync(ctx context.Context, items []models.OutboxItem) (*models.SyncResult, error) {
	body, err := json.Marshal(models.SyncRequest{Items: items})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync batch: %w", err)
	}
	var out models.SyncResult
	if err := c.do(ctx, http.MethodPost, "/api/sync", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Close() error {
	c.httpc.CloseIdleConnections()
	if c.prober != nil {
		return c.prober.Close()
	}
	return nil
}

// do sends one request and decodes the envelope's data into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set(common.AuthorizationHeaderName, "Bearer "+tok)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	var env models.Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp.StatusCode, env.Error)
	}
	if decodeErr != nil {
		return fmt.Errorf("%w: malformed envelope: %v", ErrRejected, decodeErr)
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", ErrRejected, env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
