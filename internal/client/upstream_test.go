package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"url-relay/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpstreamClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := NewUpstreamClient(discardLogger(), nil)

	resp, err := c.Get(context.Background(), srv.URL+"/greeting")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if !resp.Success() {
		t.Error("Success() = false, want true")
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q, want %q", ct, "text/plain")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want %q", string(body), "hello")
	}
}

func TestUpstreamClient_Get_NonSuccessIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	c := NewUpstreamClient(discardLogger(), nil)

	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	if resp.Success() {
		t.Error("Success() = true, want false")
	}
}

func TestUpstreamClient_Get_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewUpstreamClient(discardLogger(), nil)

	resp, err := c.Get(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "moved" {
		t.Errorf("got %d %q, want 200 %q", resp.StatusCode, string(body), "moved")
	}
}

func TestUpstreamClient_Get_Unreachable(t *testing.T) {
	c := NewUpstreamClient(discardLogger(), nil)

	_, err := c.Get(context.Background(), "http://127.0.0.1:1/nonexistent")
	if err == nil {
		t.Fatal("Get() expected error for unreachable host, got nil")
	}
}

func TestUpstreamClient_Get_UnsupportedScheme(t *testing.T) {
	c := NewUpstreamClient(discardLogger(), nil)

	for _, raw := range []string{"not a url", "ftp://example.com/file", "http://[::1"} {
		t.Run(raw, func(t *testing.T) {
			if _, err := c.Get(context.Background(), raw); err == nil {
				t.Fatalf("Get(%q) expected error, got nil", raw)
			}
		})
	}
}

func TestUpstreamClient_Get_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewUpstreamClient(discardLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, srv.URL+"/slow")
	if err == nil {
		t.Fatal("Get() expected error for canceled context, got nil")
	}
}

func TestUpstreamClient_Get_RecordsMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	m := metrics.New()
	c := NewUpstreamClient(discardLogger(), m)

	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = resp.Body.Close()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() != "url_relay_upstream_responses_total" {
			continue
		}
		for _, metric := range f.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "status_class" && lp.GetValue() == "4xx" {
					found = true
					if v := metric.GetCounter().GetValue(); v != 1 {
						t.Errorf("counter value = %v, want 1", v)
					}
				}
			}
		}
	}
	if !found {
		t.Error("expected url_relay_upstream_responses_total with status_class=4xx")
	}
}
