package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kmualim/atac-seq-pipeline/internal/store"
	"github.com/kmualim/atac-seq-pipeline/pkg/model"
)

func testServer(t *testing.T) (*Server, *store.SQLiteStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, logger), st
}

func doGet(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	rec, body := doGet(t, srv, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("envelope status = %v", body["status"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestGetRunNotFound(t *testing.T) {
	srv, _ := testServer(t)
	rec, body := doGet(t, srv, "/api/v1/runs/run_nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["error"] != "run not found" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestListRunsAndNodes(t *testing.T) {
	srv, st := testServer(t)
	ctx := context.Background()

	run := &model.Run{
		ID: "run_x", State: model.RunStateSucceeded,
		EntryType: model.EntryFragments, ReplicateCount: 2,
		CreatedAt: time.Now().UTC(),
	}
	if err := st.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	ns := &model.NodeStatus{
		NodeID: "peakcall/rep1", Kind: model.KindPeakCall,
		State:   model.NodeStateSucceeded,
		Outputs: map[string]string{"peaks": "/work/peakcall/rep1/peaks.narrowPeak.gz"},
	}
	if err := st.RecordNode(ctx, run.ID, ns); err != nil {
		t.Fatalf("RecordNode: %v", err)
	}

	rec, body := doGet(t, srv, "/api/v1/runs/")
	if rec.Code != http.StatusOK {
		t.Fatalf("list runs status = %d", rec.Code)
	}
	runs, ok := body["data"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatalf("data = %v", body["data"])
	}

	rec, body = doGet(t, srv, "/api/v1/runs/run_x")
	if rec.Code != http.StatusOK {
		t.Fatalf("get run status = %d", rec.Code)
	}
	data := body["data"].(map[string]any)
	if data["id"] != "run_x" {
		t.Errorf("run id = %v", data["id"])
	}

	rec, body = doGet(t, srv, "/api/v1/runs/run_x/nodes")
	if rec.Code != http.StatusOK {
		t.Fatalf("list nodes status = %d", rec.Code)
	}
	nodes := body["data"].([]any)
	if len(nodes) != 1 {
		t.Fatalf("nodes = %v", nodes)
	}
	node := nodes[0].(map[string]any)
	if node["node_id"] != "peakcall/rep1" {
		t.Errorf("node_id = %v", node["node_id"])
	}
}

func TestListRunsBadLimit(t *testing.T) {
	srv, _ := testServer(t)
	rec, _ := doGet(t, srv, "/api/v1/runs/?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
