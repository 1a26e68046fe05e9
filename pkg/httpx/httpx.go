// Package httpx carries the JSON helpers every service shares: response
// writers, request decoding, a bounded-timeout client for the three network
// legs, and the handler instrumentation wrapper.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/metrics"
)

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteStatus writes the `{"status": ...}` body used by every failure reply.
func WriteStatus(w http.ResponseWriter, code int, message string) {
	WriteJSON(w, code, api.StatusResponse{Status: message})
}

func ReadJSON(r *http.Request, v any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// Metrics is chi middleware recording request count and latency, labelled
// by the matched route pattern.
func Metrics(m *metrics.ServerMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			name := chi.RouteContext(r.Context()).RoutePattern()
			if name == "" {
				name = r.URL.Path
			}
			m.Requests.WithLabelValues(name, fmt.Sprintf("%d", sw.status)).Inc()
			m.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Client is the JSON round-trip client used for inter-service calls. Every
// call shares one bounded timeout; on timeout the callee is treated as
// failed and nothing is retried.
type Client struct {
	base string
	http *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

var ErrUnexpectedStatus = errors.New("unexpected status")

// PostJSON sends a payload and decodes the body into out when out is non-nil
// and the reply carries one. The status code is returned even on non-2xx so
// callers can map it onto the outcome taxonomy.
func (c *Client) PostJSON(ctx context.Context, path string, payload, out any) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) GetJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return 0, err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			// Failure replies may carry no body; only a broken success
			// body is a fault.
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
		}
	}
	return resp.StatusCode, nil
}
