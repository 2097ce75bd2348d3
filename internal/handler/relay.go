package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"url-relay/internal/metrics"
	"url-relay/internal/service"
)

// Fixed one-line diagnostics returned to the client.
const (
	msgDecodeFailed  = "Failed to decode base64 url param"
	msgUTF8Failed    = "Failed to convert bytes to utf8 string"
	msgRequestFailed = "Request url failed"
	msgStatusNotOK   = "Request url status code is not success"
)

const (
	encodedURLParam   = "encoded_url"
	relayRoutePattern = "/:" + encodedURLParam
)

// RelayHandler serves GET /:encoded_url by fetching the decoded URL and
// streaming its body back.
type RelayHandler struct {
	service *service.RelayService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRelayHandler creates a RelayHandler.
// The metrics parameter is optional; pass nil to disable byte accounting.
func NewRelayHandler(svc *service.RelayService, logger *slog.Logger, m *metrics.Metrics) *RelayHandler {
	return &RelayHandler{
		service: svc,
		logger:  logger.With("component", "relay_handler"),
		metrics: m,
	}
}

// Handle relays one request. Nothing is written before the upstream has
// answered with a 2xx status, so every failure is a clean 400 or 500.
func (h *RelayHandler) Handle(c echo.Context) error {
	req := c.Request()

	// An undecodable escape is passed through as-is; the '%' fails base64
	// decoding and yields the usual 400.
	encoded := c.Param(encodedURLParam)
	if unescaped, err := url.PathUnescape(encoded); err == nil {
		encoded = unescaped
	}

	resp, err := h.service.Fetch(req.Context(), encoded)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	header := c.Response().Header()
	if ct := resp.Header.Values(echo.HeaderContentType); len(ct) > 0 {
		header[echo.HeaderContentType] = ct
	} else {
		// A nil entry stops net/http from sniffing a content type.
		header[echo.HeaderContentType] = nil
	}

	c.Response().WriteHeader(http.StatusOK)

	// Headers are already sent, so a failed copy can only truncate the body.
	n, err := io.Copy(flushWriter{c.Response()}, resp.Body)
	if h.metrics != nil {
		h.metrics.BytesRelayed.Add(float64(n))
	}
	if err != nil {
		h.logger.Warn("streaming response body",
			"err", err,
			"bytes", n,
		)
	}

	return nil
}

func (h *RelayHandler) mapError(c echo.Context, err error) error {
	h.logger.Debug("relay failed", "err", err)

	switch {
	case errors.Is(err, service.ErrInvalidEncoding):
		return c.String(http.StatusBadRequest, msgDecodeFailed)
	case errors.Is(err, service.ErrInvalidUTF8):
		return c.String(http.StatusBadRequest, msgUTF8Failed)
	case errors.Is(err, service.ErrUpstreamStatus):
		return c.String(http.StatusInternalServerError, msgStatusNotOK)
	default:
		return c.String(http.StatusInternalServerError, msgRequestFailed)
	}
}

// flushWriter pushes every chunk to the client as soon as it is written.
type flushWriter struct {
	res *echo.Response
}

func (f flushWriter) Write(p []byte) (int, error) {
	n, err := f.res.Write(p)
	if n > 0 {
		f.res.Flush()
	}
	return n, err
}
