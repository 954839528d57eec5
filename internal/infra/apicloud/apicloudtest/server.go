// Package apicloudtest provides an in-process fake of the api-cloud service.
package apicloudtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/utof/debtds/internal/infra/apicloud"
	"github.com/utof/debtds/internal/core/quota"
)

// Reply is what the fake returns for one request. A zero HTTPStatus means
// 200. Drop closes the connection without a reply.
type Reply struct {
	HTTPStatus int
	Body       any
	Raw        string
	Drop       bool
}

// HandlerFunc answers one request. endpoint is the file name, e.g.
// "kad_arbitr.php".
type HandlerFunc func(endpoint string, q url.Values) Reply

// Server is a recording fake of api-cloud.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	handler  HandlerFunc
	requests []Request
}

// Request is one recorded call.
type Request struct {
	Endpoint string
	RawQuery string
	Query    url.Values
}

// New starts a fake and registers its shutdown with t.
func New(t testing.TB, handler HandlerFunc) *Server {
	t.Helper()
	s := &Server{handler: handler}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// SetHandler swaps the handler, e.g. between two runs of a test.
func (s *Server) SetHandler(h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/")
	q := r.URL.Query()

	s.mu.Lock()
	s.requests = append(s.requests, Request{Endpoint: endpoint, RawQuery: r.URL.RawQuery, Query: q})
	h := s.handler
	s.mu.Unlock()

	reply := h(endpoint, q)
	if reply.Drop {
		hj, ok := w.(http.Hijacker)
		if ok {
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
				return
			}
		}
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	status := reply.HTTPStatus
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if reply.Raw != "" {
		_, _ = w.Write([]byte(reply.Raw))
		return
	}
	if reply.Body != nil {
		_ = json.NewEncoder(w).Encode(reply.Body)
	}
}

// Requests returns a copy of the recorded calls.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many calls had the given type parameter.
func (s *Server) Count(callType string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Query.Get("type") == callType {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Client returns a fast client pointed at the fake.
func (s *Server) Client(guard *quota.Guard) *apicloud.Client {
	return apicloud.NewClient(apicloud.Config{
		BaseURL:        s.URL,
		Token:          "test-token",
		Timeout:        5 * time.Second,
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
	}, guard, nil)
}

// OK wraps a payload in a status 200 envelope with a healthy balance.
func OK(fields map[string]any) map[string]any {
	out := map[string]any{
		"status":  200,
		"inquiry": map[string]any{"balance": 1000.0},
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// WithBalance overrides the reported balance of an envelope.
func WithBalance(body map[string]any, balance float64) map[string]any {
	body["inquiry"] = map[string]any{"balance": balance}
	return body
}
