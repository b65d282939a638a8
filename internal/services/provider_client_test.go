package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestProviderClient() *providerClient {
	c := newProviderClient("test", 0)
	c.backoff = time.Millisecond
	c.rateLimitWait = time.Millisecond
	return c
}

func TestProviderClientRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"value": 42}`))
	}))
	defer server.Close()

	var out struct {
		Value int `json:"value"`
	}
	found, err := newTestProviderClient().getJSON(context.Background(), server.URL, &out)
	if err != nil {
		t.Fatalf("getJSON() error = %v", err)
	}
	if !found || out.Value != 42 {
		t.Errorf("getJSON() = %v, %+v; want true, 42", found, out)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestProviderClientNotFound(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	var out map[string]any
	found, err := newTestProviderClient().getJSON(context.Background(), server.URL, &out)
	if err != nil || found {
		t.Errorf("getJSON() = %v, %v; want false, nil", found, err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("404 should not be retried, server saw %d calls", got)
	}
}

func TestProviderClientGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	var out map[string]any
	if _, err := newTestProviderClient().getJSON(context.Background(), server.URL, &out); err == nil {
		t.Fatal("getJSON() error = nil, want error after retries")
	}
	if got := calls.Load(); got != providerMaxAttempts {
		t.Errorf("server saw %d calls, want %d", got, providerMaxAttempts)
	}
}

func TestProviderClientDecodeErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	var out map[string]any
	if _, err := newTestProviderClient().getJSON(context.Background(), server.URL, &out); err == nil {
		t.Fatal("getJSON() error = nil, want decode error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestProviderClientAuthorize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestProviderClient()
	c.maxAttempts = 1
	c.authorize = func(req *http.Request) { req.Header.Set("Authorization", "Bearer secret") }

	var out map[string]any
	if found, err := c.getJSON(context.Background(), server.URL, &out); err != nil || !found {
		t.Errorf("getJSON() = %v, %v; want true, nil", found, err)
	}
}
