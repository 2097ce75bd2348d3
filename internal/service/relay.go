// Package service implements the relay's decode-and-fetch policy.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"url-relay/internal/client"
	"url-relay/internal/metrics"
	"url-relay/internal/model"
)

// Errors returned by Fetch. Every failure is terminal for its request.
var (
	ErrInvalidEncoding     = errors.New("target is not valid base64url")
	ErrInvalidUTF8         = errors.New("decoded target is not valid utf-8")
	ErrUpstreamUnreachable = errors.New("upstream request failed")
	ErrUpstreamStatus      = errors.New("upstream status is not success")
)

// urlEncoding is the URL-safe alphabet without padding. Trailing '=' is
// stripped before decoding so padded input is accepted too.
var urlEncoding = base64.RawURLEncoding.Strict()

// Fetcher issues the outbound GET. *client.UpstreamClient satisfies it.
type Fetcher interface {
	Get(ctx context.Context, rawURL string) (*model.UpstreamResponse, error)
}

var _ Fetcher = (*client.UpstreamClient)(nil)

// RelayService decodes relay targets and fetches them.
type RelayService struct {
	fetcher Fetcher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelayService creates a RelayService.
// The metrics parameter is optional; pass nil to disable failure accounting.
func NewRelayService(c *client.UpstreamClient, logger *slog.Logger, m *metrics.Metrics) *RelayService {
	return newRelayService(c, logger, m)
}

func newRelayService(f Fetcher, logger *slog.Logger, m *metrics.Metrics) *RelayService {
	return &RelayService{
		fetcher: f,
		logger:  logger.With("component", "relay_service"),
		metrics: m,
	}
}

// DecodeTarget turns an encoded path segment into the target URL string.
// The result is only checked for UTF-8 validity, not parsed as a URL.
func DecodeTarget(encoded string) (string, error) {
	raw, err := urlEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

// Fetch decodes encoded and GETs the target. On success the caller owns the
// returned body. On a non-2xx upstream status the body is closed unread and
// ErrUpstreamStatus is returned; the upstream status is not exposed.
func (s *RelayService) Fetch(ctx context.Context, encoded string) (*model.UpstreamResponse, error) {
	target, err := DecodeTarget(encoded)
	if err != nil {
		if errors.Is(err, ErrInvalidUTF8) {
			s.fail(metrics.ReasonInvalidUTF8)
		} else {
			s.fail(metrics.ReasonInvalidEncoding)
		}
		return nil, err
	}

	resp, err := s.fetcher.Get(ctx, target)
	if err != nil {
		s.fail(metrics.ReasonUpstreamUnreachable)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err)
	}

	if !resp.Success() {
		_ = resp.Body.Close()
		s.fail(metrics.ReasonUpstreamStatus)
		s.logger.Debug("upstream returned non-success status", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	return resp, nil
}

func (s *RelayService) fail(reason string) {
	if s.metrics != nil {
		s.metrics.RelayFailures.WithLabelValues(reason).Inc()
	}
}
