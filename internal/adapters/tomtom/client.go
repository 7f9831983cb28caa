// Package tomtom fetches traffic incidents from the TomTom Traffic Incident
// Details v5 API.
package tomtom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/ports"
	"github.com/samirrijal/routegate/internal/pkg/metrics"
)

const (
	incidentDetailsPath = "/traffic/services/5/incidentDetails"

	// incidentFields limits the response to what exclusion points need.
	incidentFields = "{incidents{type,geometry{type,coordinates},properties{iconCategory}}}"

	// timeValidityPresent restricts results to incidents active right now.
	timeValidityPresent = "present"

	defaultTimeout = 5 * time.Second

	// maxErrorBody caps how much of an error response is kept for diagnostics.
	maxErrorBody = 4 << 10
)

var tracer = otel.Tracer("github.com/samirrijal/routegate/internal/adapters/tomtom")

var _ ports.IncidentProvider = (*Client)(nil)

// Client implements ports.IncidentProvider against the TomTom API.
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	timeout    time.Duration
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLanguage sets the language of incident descriptions.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// WithTimeout sets the per-call timeout layered over the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a TomTom incident client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		language:   "en-GB",
		timeout:    defaultTimeout,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Incidents returns the incidents currently valid inside bbox.
func (c *Client) Incidents(ctx context.Context, bbox domain.BoundingBox) ([]domain.Incident, error) {
	ctx, span := tracer.Start(ctx, "tomtom.Incidents")
	defer span.End()
	span.SetAttributes(attribute.String("tomtom.bbox", bbox.String()))

	started := time.Now()
	incidents, err := c.fetch(ctx, bbox)
	if err != nil {
		metrics.ObserveUpstream(domain.UpstreamTraffic, "error", started)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	metrics.ObserveUpstream(domain.UpstreamTraffic, "ok", started)
	span.SetAttributes(attribute.Int("tomtom.incidents", len(incidents)))
	return incidents, nil
}

func (c *Client) fetch(ctx context.Context, bbox domain.BoundingBox) ([]domain.Incident, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.requestURL(bbox), nil)
	if err != nil {
		return nil, fmt.Errorf("tomtom: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.UpstreamError{Upstream: domain.UpstreamTraffic, Err: redactKey(err, c.apiKey)}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, &domain.UpstreamError{
			Upstream:   domain.UpstreamTraffic,
			StatusCode: httpResp.StatusCode,
			Body:       string(body),
		}
	}

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &domain.UpstreamError{Upstream: domain.UpstreamTraffic, Err: fmt.Errorf("read response: %w", err)}
	}

	var apiResp incidentDetailsResponse
	if err := json.Unmarshal(respBytes, &apiResp); err != nil {
		return nil, &domain.ResponseShapeError{Upstream: domain.UpstreamTraffic, Path: "incidents", Err: err}
	}

	incidents := make([]domain.Incident, 0, len(apiResp.Incidents))
	for i, inc := range apiResp.Incidents {
		geom, err := inc.Geometry.toDomain()
		if err != nil {
			return nil, &domain.ResponseShapeError{
				Upstream: domain.UpstreamTraffic,
				Path:     fmt.Sprintf("incidents[%d].geometry.coordinates", i),
				Err:      err,
			}
		}
		incidents = append(incidents, domain.Incident{
			Type:         inc.Type,
			IconCategory: inc.Properties.IconCategory,
			Geometry:     geom,
		})
	}
	return incidents, nil
}

func (c *Client) requestURL(bbox domain.BoundingBox) string {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("bbox", bbox.String())
	q.Set("fields", incidentFields)
	q.Set("language", c.language)
	q.Set("t", "1111")
	q.Set("timeValidityFilter", timeValidityPresent)
	return c.baseURL + incidentDetailsPath + "?" + q.Encode()
}

// redactKey strips the API key from transport errors, which embed the URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
