package mgmt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/krisarmstrong/al1905d/pkg/stats"
	"github.com/krisarmstrong/al1905d/pkg/store"
	"github.com/krisarmstrong/al1905d/pkg/topology"
	"github.com/krisarmstrong/al1905d/pkg/wire"
)

type echoAlme struct{}

func (echoAlme) SubmitAlme(ctx context.Context, request []byte) ([]byte, error) {
	return request, nil
}

func newTestServer() *Server {
	net := topology.New()
	net.SetLocal(wire.MacAddress{0x02, 0xee, 0xff, 0x33, 0x44, 0x00}, time.Now())
	st := stats.New(wire.MacAddress{0x02, 0xee, 0xff, 0x33, 0x44, 0x00}, "test")
	s := New(st, nil, echoAlme{})
	s.SetSnapshot(store.SnapshotFromNetwork(net, time.Now()))
	return s
}

func TestHandleTopologyReturnsSnapshotJSON(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/topology", nil)
	rec := httptest.NewRecorder()
	s.withMiddleware(s.handleTopology)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(snap.Devices) != 1 {
		t.Fatalf("expected exactly the local device in the snapshot, got %d", len(snap.Devices))
	}
}

func TestHandleStatsReturnsCounters(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	s.withMiddleware(s.handleStats)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandleAlmeRoundTripsRequestBody(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/alme", strings.NewReader("ping"))
	rec := httptest.NewRecorder()
	s.withMiddleware(s.handleAlme)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ping" {
		t.Fatalf("body = %q, want echoed request", rec.Body.String())
	}
}

func TestHandleAlmeRejectsGet(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/alme", nil)
	rec := httptest.NewRecorder()
	s.withMiddleware(s.handleAlme)(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestRateLimiterBlocksBurstExceeded(t *testing.T) {
	rl := newIPRateLimiter(1, 1)
	if !rl.allow("10.0.0.1") {
		t.Fatalf("first request should be allowed")
	}
	if rl.allow("10.0.0.1") {
		t.Fatalf("second immediate request should be rate limited")
	}
}
