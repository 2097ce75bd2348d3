// Package client provides the outbound HTTP client used to fetch relayed URLs.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"url-relay/internal/metrics"
	"url-relay/internal/model"
)

// UpstreamClient performs the outbound GET for a relayed URL.
type UpstreamClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient on the default transport.
// No timeout is set and redirects follow net/http's default policy.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	return &UpstreamClient{
		httpClient: &http.Client{},
		logger:     logger.With("component", "upstream_client"),
		metrics:    m,
	}
}

// Get issues a plain GET to rawURL and returns the response with its body unread.
// The caller is responsible for closing the response body. The context bounds
// the whole exchange, so a disconnecting client cancels the upstream fetch.
func (c *UpstreamClient) Get(ctx context.Context, rawURL string) (*model.UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	c.logger.Debug("upstream request", "host", req.URL.Host)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via UpstreamResponse
	if c.metrics != nil {
		c.metrics.UpstreamDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		c.metrics.UpstreamResponses.WithLabelValues(metrics.StatusClass(resp.StatusCode)).Inc()
	}

	return &model.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}
