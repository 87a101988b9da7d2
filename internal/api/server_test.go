package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/annagriffin/swarm-cooperative-transport/internal/control"
	"github.com/annagriffin/swarm-cooperative-transport/internal/teledb"
	"github.com/annagriffin/swarm-cooperative-transport/internal/transport"
)

type fakeLoop struct {
	status control.LoopStatus
}

func (f *fakeLoop) Status() control.LoopStatus { return f.status }

type fakeCycles struct {
	rows      []teledb.CycleRow
	err       error
	gotLimit  int
	sessionID string
}

func (f *fakeCycles) Session() string { return f.sessionID }

func (f *fakeCycles) RecentCycles(limit int) ([]teledb.CycleRow, error) {
	f.gotLimit = limit
	return f.rows, f.err
}

func TestShowStatus(t *testing.T) {
	stats := &transport.Stats{}
	stats.AddPacket(128)
	stats.AddPacket(64)
	stats.AddDropped()

	loop := &fakeLoop{status: control.LoopStatus{
		State: "commanded", Cycles: 10, Commanded: 7, Safe: 3,
	}}
	server := NewServer("robot2", loop, &fakeCycles{sessionID: "abc"}, stats)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Robot != "robot2" {
		t.Errorf("robot = %q, want robot2", resp.Robot)
	}
	if resp.Session != "abc" {
		t.Errorf("session = %q, want abc", resp.Session)
	}
	if resp.Loop.State != "commanded" || resp.Loop.Cycles != 10 {
		t.Errorf("loop status = %+v", resp.Loop)
	}
	if resp.Packets != 2 || resp.Bytes != 192 || resp.Dropped != 1 {
		t.Errorf("packet stats = %d/%d/%d, want 2/192/1", resp.Packets, resp.Bytes, resp.Dropped)
	}
}

func TestShowStatus_MethodNotAllowed(t *testing.T) {
	server := NewServer("robot2", &fakeLoop{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestListCycles(t *testing.T) {
	cycles := &fakeCycles{
		sessionID: "abc",
		rows: []teledb.CycleRow{
			{ID: 2, SessionID: "abc", State: "commanded", Linear: 0.1, At: time.Now().UTC()},
			{ID: 1, SessionID: "abc", State: "safe", At: time.Now().UTC()},
		},
	}
	server := NewServer("robot2", &fakeLoop{}, cycles, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cycles?limit=25", nil)
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if cycles.gotLimit != 25 {
		t.Errorf("limit = %d, want 25", cycles.gotLimit)
	}
	var rows []teledb.CycleRow
	if err := json.NewDecoder(rec.Body).Decode(&rows); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(rows) != 2 || rows[0].State != "commanded" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestListCycles_CapsOversizedLimit(t *testing.T) {
	cycles := &fakeCycles{}
	server := NewServer("robot2", &fakeLoop{}, cycles, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cycles?limit=100000", nil)
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if cycles.gotLimit != maxCyclesLimit {
		t.Errorf("limit = %d, want capped at %d", cycles.gotLimit, maxCyclesLimit)
	}
}

func TestListCycles_InvalidLimit(t *testing.T) {
	server := NewServer("robot2", &fakeLoop{}, &fakeCycles{}, nil)

	for _, q := range []string{"limit=0", "limit=-1", "limit=abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/cycles?"+q, nil)
		rec := httptest.NewRecorder()
		server.ServeMux().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestListCycles_TelemetryDisabled(t *testing.T) {
	server := NewServer("robot2", &fakeLoop{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cycles", nil)
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListCycles_EmptyIsJSONArray(t *testing.T) {
	server := NewServer("robot2", &fakeLoop{}, &fakeCycles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/cycles", nil)
	rec := httptest.NewRecorder()
	server.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}
