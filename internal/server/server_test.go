package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"hypecast/internal/config"
	"hypecast/internal/hypem"
	"hypecast/internal/media"
)

type fakeTracer map[string]string

func (f fakeTracer) TraceInput(_ context.Context, input string) hypem.Trace {
	t := hypem.Trace{Input: input, ID: input}
	if raw, ok := f[input]; ok {
		t.URL, _ = url.Parse(raw)
		t.Path = media.PathServe
	}
	return t
}

func newTestServer(t *testing.T, record Recorder) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	hypem.NewMetrics(reg)

	tracer := fakeTracer{"zz999": "http://cdn.example.com/zz999.mp3"}
	s := New(config.Default().Server, tracer, reg, record, zap.NewNop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, rawURL string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, body
}

func TestCreateHTTPServer(t *testing.T) {
	cfg := config.ServerConfig{
		Addr:         "0.0.0.0:9090",
		ReadTimeout:  config.Duration{Duration: 10 * time.Second},
		WriteTimeout: config.Duration{Duration: 15 * time.Second},
	}

	mux := http.NewServeMux()
	server := createHTTPServer(cfg, mux)

	if server.Addr != cfg.Addr {
		t.Errorf("Addr = %q, want %q", server.Addr, cfg.Addr)
	}
	if server.Handler != mux {
		t.Error("Handler mismatch")
	}
	if server.ReadTimeout != 10*time.Second || server.WriteTimeout != 15*time.Second {
		t.Errorf("timeouts = %v/%v", server.ReadTimeout, server.WriteTimeout)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("body = %s", body)
	}
}

func TestResolve(t *testing.T) {
	var mu sync.Mutex
	var recorded []media.Resolution
	srv := newTestServer(t, func(r media.Resolution) {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, r)
	})

	tests := []struct {
		name   string
		query  string
		status int
		url    any
	}{
		{"resolved", "?track=zz999", http.StatusOK, "http://cdn.example.com/zz999.mp3"},
		{"absent", "?track=2c87x", http.StatusNotFound, nil},
		{"missing parameter", "", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+"/resolve"+tt.query)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}

			var got map[string]any
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("invalid JSON %s: %v", body, err)
			}
			if got["url"] != tt.url {
				t.Errorf("url = %v, want %v", got["url"], tt.url)
			}
		})
	}

	mu.Lock()
	defer mu.Unlock()
	if len(recorded) != 2 {
		t.Fatalf("recorded %d resolutions, want 2", len(recorded))
	}
	if !recorded[0].Resolved() || recorded[1].Resolved() {
		t.Errorf("recorded = %+v", recorded)
	}
}

func TestResolveRejectsOtherMethods(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Post(srv.URL+"/resolve?track=zz999", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "hypecast_resolve_duration_seconds") {
		t.Errorf("metrics output missing resolver histogram:\n%s", body)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()

	cfg := config.Default().Server
	cfg.Addr = addr
	s := New(cfg, fakeTracer{}, prometheus.NewRegistry(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() = %v, want nil after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
