package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/voltlab/distflow/pkg/network"
	"github.com/voltlab/distflow/pkg/phase"
	"github.com/voltlab/distflow/pkg/pipeline"
)

func testServer() *Server {
	return New(Config{
		Addr:   ":0",
		Runner: pipeline.NewRunner(nil, log.New(io.Discard)),
		Logger: log.New(io.Discard),
	})
}

func testModel() *network.Model {
	return &network.Model{
		Nodes:   []string{"632", "sourcebus"},
		General: network.General{VBaseKVLL: 4.16, SBaseMVA: 1.0},
		Lines: []network.Line{{
			Name: "l1", From: "sourcebus", To: "632", Length: 1,
			R: phase.Matrix3{{0.3, 0, 0}, {0, 0.3, 0}, {0, 0, 0.3}},
			X: phase.Matrix3{{0.1, 0, 0}, {0, 0.1, 0}, {0, 0, 0.1}},
		}},
		Loads: []network.Load{{Bus: "632", P: phase.Vector3{500, 500, 500}}},
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer().Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Request-ID"); got == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestSolve(t *testing.T) {
	body, err := json.Marshal(solveRequest{Model: testModel()})
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(body))
	testServer().Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var res solveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.RunID == "" {
		t.Error("missing run_id")
	}
	if res.Root != "sourcebus" || !res.RootFound {
		t.Errorf("root = %q (found=%v), want sourcebus", res.Root, res.RootFound)
	}
	if len(res.Nodes) != 2 || res.Nodes[0] != "sourcebus" {
		t.Fatalf("nodes = %v, want root first", res.Nodes)
	}
	for ph := 0; ph < 3; ph++ {
		if v := res.Voltages[1][ph]; v >= 1.0 {
			t.Errorf("loaded bus phase %d voltage = %v, want below unity", ph, v)
		}
	}
}

func TestSolve_CustomRootVoltage(t *testing.T) {
	body, _ := json.Marshal(solveRequest{
		Model:       testModel(),
		RootVoltage: phase.Vector3{1.05, 1.05, 1.05},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(body))
	testServer().Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var res solveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Voltages[0] != (phase.Vector3{1.05, 1.05, 1.05}) {
		t.Errorf("root voltage = %v, want 1.05 on all phases", res.Voltages[0])
	}
}

func TestSolve_LoadsOverride(t *testing.T) {
	// The override replaces the model's 500 kW load with a zero one,
	// so every bus stays at the root voltage.
	body, _ := json.Marshal(solveRequest{
		Model: testModel(),
		Loads: []network.Load{{Bus: "632"}},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewReader(body))
	testServer().Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var res solveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	for i, v := range res.Voltages {
		if v != (phase.Vector3{1, 1, 1}) {
			t.Errorf("bus %s voltage = %v, want unity without loads", res.Nodes[i], v)
		}
	}
}

func TestSolve_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed JSON", `{`, http.StatusBadRequest},
		{"missing model", `{}`, http.StatusBadRequest},
		{"invalid model", `{"model":{"nodes":[],"general":{"v_base_kv_ll":4.16,"s_base_mva":1}}}`, http.StatusUnprocessableEntity},
	}

	srv := testServer().Routes()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/solve", bytes.NewBufferString(tt.body))
			srv.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestRuns_NoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	testServer().Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 without a store", rec.Code)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	testServer().Routes().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want caller's id echoed", got)
	}
}
