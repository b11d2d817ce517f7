package server_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/transit-alert-push/internal/server"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/pipeline"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/storage"
)

type fixedStatus struct{ rep *pipeline.Report }

func (f fixedStatus) LastReport() *pipeline.Report { return f.rep }

func setupServer(t *testing.T, rep *pipeline.Report) *server.Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	// Seed some data
	for _, id := range []string{"100", "101"} {
		require.NoError(t, store.Create(context.Background(), &model.SentRecord{
			AlertID: model.AlertID(id),
			Alert:   model.Alert{ID: model.AlertID(id), HeaderText: "Blue Line delays"},
		}))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return server.NewServer(fixedStatus{rep: rep}, store, logger)
}

func get(t *testing.T, srv *server.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	w := get(t, setupServer(t, nil), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestServer_Status_NoRuns(t *testing.T) {
	w := get(t, setupServer(t, nil), "/api/v1/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no runs yet")
}

func TestServer_Status(t *testing.T) {
	rep := &pipeline.Report{RunID: "run-1", Fetched: 12, Outcomes: map[string]int{"dispatched": 2}}
	w := get(t, setupServer(t, rep), "/api/v1/status")
	assert.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, float64(12), got["fetched"])
}

func TestServer_SentList(t *testing.T) {
	srv := setupServer(t, nil)

	w := get(t, srv, "/api/v1/sent")
	assert.Equal(t, http.StatusOK, w.Code)
	var records []model.SentRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	assert.Len(t, records, 2)

	w = get(t, srv, "/api/v1/sent?limit=1")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&records))
	assert.Len(t, records, 1)

	w = get(t, srv, "/api/v1/sent?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_SentCheck(t *testing.T) {
	srv := setupServer(t, nil)

	var resp struct {
		AlertID string `json:"alert_id"`
		Sent    bool   `json:"sent"`
	}
	w := get(t, srv, "/api/v1/sent/100")
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Sent)

	w = get(t, srv, "/api/v1/sent/999")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "999", resp.AlertID)
	assert.False(t, resp.Sent)
}

func TestServer_UnknownRoute(t *testing.T) {
	w := get(t, setupServer(t, nil), "/api/v1/usage")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
