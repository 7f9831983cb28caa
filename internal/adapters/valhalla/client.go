// Package valhalla posts routing payloads to a Valhalla /route endpoint.
package valhalla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/ports"
	"github.com/samirrijal/routegate/internal/pkg/metrics"
)

const (
	// DefaultURL is the routing engine's fixed local endpoint.
	DefaultURL = "http://localhost:8002/route"

	defaultTimeout = 15 * time.Second

	// httpMaxIdleConns is the maximum number of idle (keep-alive) connections
	// kept in the transport pool.
	httpMaxIdleConns = 10

	// httpIdleConnTimeout is how long an idle connection stays in the pool.
	httpIdleConnTimeout = 30 * time.Second

	maxErrorBody = 16 << 10
)

var tracer = otel.Tracer("github.com/samirrijal/routegate/internal/adapters/valhalla")

var _ ports.RoutingEngine = (*Client)(nil)

// Client implements ports.RoutingEngine.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout sets the per-call timeout layered over the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport overrides the pooled transport settings.
func WithTransport(maxIdleConns int, idleConnTimeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        maxIdleConns,
			MaxIdleConnsPerHost: maxIdleConns,
			IdleConnTimeout:     idleConnTimeout,
		}
	}
}

// NewClient creates a routing engine client posting to routeURL.
func NewClient(routeURL string, opts ...Option) *Client {
	if routeURL == "" {
		routeURL = DefaultURL
	}
	c := &Client{
		url:     routeURL,
		timeout: defaultTimeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        httpMaxIdleConns,
				MaxIdleConnsPerHost: httpMaxIdleConns,
				IdleConnTimeout:     httpIdleConnTimeout,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Route posts payload and returns the parsed trip. A non-2xx answer is an
// UpstreamError carrying the exact status and body; the body is not parsed.
func (c *Client) Route(ctx context.Context, payload *domain.RoutingPayload) (*domain.TripResponse, error) {
	ctx, span := tracer.Start(ctx, "valhalla.Route")
	defer span.End()
	span.SetAttributes(
		attribute.String("valhalla.costing", payload.Costing),
		attribute.Int("valhalla.exclude_locations", len(payload.ExcludeLocations)),
	)

	started := time.Now()
	resp, err := c.post(ctx, payload)
	if err != nil {
		metrics.ObserveUpstream(domain.UpstreamRouter, "error", started)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.ObserveUpstream(domain.UpstreamRouter, "ok", started)
	return resp, nil
}

func (c *Client) post(ctx context.Context, payload *domain.RoutingPayload) (*domain.TripResponse, error) {
	body, err := MarshalPayload(payload)
	if err != nil {
		return nil, fmt.Errorf("valhalla: marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("valhalla: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamError{Upstream: domain.UpstreamRouter, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, &domain.UpstreamError{
			Upstream:   domain.UpstreamRouter,
			StatusCode: httpResp.StatusCode,
			Body:       string(errBody),
		}
	}

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Upstream: domain.UpstreamRouter, Err: fmt.Errorf("read response: %w", err)}
	}

	var out domain.TripResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return nil, &domain.ResponseShapeError{Upstream: domain.UpstreamRouter, Path: "trip", Err: err}
	}
	return &out, nil
}

// MarshalPayload encodes the payload without HTML escaping so opaque
// costing options reach the engine unchanged.
func MarshalPayload(payload *domain.RoutingPayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
