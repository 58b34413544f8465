package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PivotScreener/internal/model"
)

type stubSnapshots struct {
	snap  *model.Snapshot
	dirty bool
}

func (s *stubSnapshots) Read() *model.Snapshot { return s.snap }
func (s *stubSnapshots) Dirty() bool           { return s.dirty }

type stubHistory struct {
	cycles   []model.CycleReport
	err      error
	gotLimit int
}

func (s *stubHistory) RecentCycles(limit int) ([]model.CycleReport, error) {
	s.gotLimit = limit
	return s.cycles, s.err
}

type stubCycles struct {
	last *model.CycleReport
	rep  *model.CycleReport
	err  error
	runs int
}

func (s *stubCycles) LastReport() *model.CycleReport { return s.last }

func (s *stubCycles) RunNow() (*model.CycleReport, error) {
	s.runs++
	return s.rep, s.err
}

func liveSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Breakouts: []model.ScanResult{{
			Symbol: "RELIANCE", LastClose: 125, CurrentVolume: 5000, AvgVolume: 1100,
			Upper: 122, Lower: 78, Status: model.Breakout,
		}},
		Breakdowns: []model.ScanResult{},
		CycleID:    "c-1",
		UpdatedAt:  time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func serve(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHome(t *testing.T) {
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, nil, nil, nil)
	w := serve(t, h, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Stock Screener is running!"}`, w.Body.String())
}

func TestLatestScan_NothingYet(t *testing.T) {
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, nil, nil, nil)
	for _, path := range []string{"/scan", "/scan/"} {
		w := serve(t, h, path)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"No stocks met the criteria yet"}`, w.Body.String())
	}
}

func TestLatestScan_ReturnsSnapshot(t *testing.T) {
	h := NewHandler(&stubSnapshots{snap: liveSnapshot()}, &stubHistory{}, nil, nil, nil)
	w := serve(t, h, "/scan/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	breakouts := body["breakouts"].([]interface{})
	require.Len(t, breakouts, 1)
	first := breakouts[0].(map[string]interface{})
	assert.Equal(t, "RELIANCE", first["ticker"])
	assert.Equal(t, "breakout", first["status"])
	assert.Equal(t, 122.0, first["r4"])
	assert.Equal(t, 1100.0, first["avg_last_3_volume"])
	assert.Empty(t, body["breakdowns"])
	assert.Equal(t, "c-1", body["cycle_id"])
}

func TestHealth(t *testing.T) {
	h := NewHandler(&stubSnapshots{snap: liveSnapshot(), dirty: true}, &stubHistory{}, nil, nil, nil)
	w := serve(t, h, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, true, body["snapshot_dirty"])
	assert.Equal(t, 1.0, body["breakouts"])
	assert.Equal(t, "2025-03-14T09:30:00Z", body["snapshot_updated_at"])
}

func TestListCycles(t *testing.T) {
	hist := &stubHistory{cycles: []model.CycleReport{{ID: "c-2", Outcome: model.OutcomeNoSignals}}}
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, hist, nil, nil, nil)

	w := serve(t, h, "/api/v1/cycles")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, defaultCycleLimit, hist.gotLimit)

	var body struct {
		Cycles []model.CycleReport `json:"cycles"`
		Count  int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "c-2", body.Cycles[0].ID)

	serve(t, h, "/api/v1/cycles?limit=5000")
	assert.Equal(t, maxCycleLimit, hist.gotLimit)

	w = serve(t, h, "/api/v1/cycles?limit=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCycles_Empty(t *testing.T) {
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, nil, nil, nil)
	w := serve(t, h, "/api/v1/cycles")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cycles":[],"count":0}`, w.Body.String())
}

func TestListCycles_StoreError(t *testing.T) {
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{err: errors.New("db locked")}, nil, nil, nil)
	w := serve(t, h, "/api/v1/cycles")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, nil, nil, nil)
	serve(t, h, "/scan/")
	w := serve(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "screener_http_requests_total")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := NewHandler(&stubSnapshots{}, &stubHistory{}, nil, nil, nil)
	// A nil snapshot pointer makes Health dereference nil.
	w := serve(t, h, "/health")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func TestHealth_LastCycle(t *testing.T) {
	cycles := &stubCycles{last: &model.CycleReport{
		ID:         "c-9",
		Outcome:    model.OutcomeNoSignals,
		FinishedAt: time.Date(2025, 3, 14, 9, 33, 0, 0, time.UTC),
	}}
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, cycles, nil, nil)
	w := serve(t, h, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		LastCycle map[string]string `json:"last_cycle"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "c-9", body.LastCycle["id"])
	assert.Equal(t, "no_signals", body.LastCycle["outcome"])
	assert.Equal(t, "2025-03-14T09:33:00Z", body.LastCycle["finished_at"])
}

func post(t *testing.T, h *Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.Router().ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, nil))
	return w
}

func TestTriggerScan(t *testing.T) {
	cycles := &stubCycles{rep: &model.CycleReport{ID: "c-10", Outcome: model.OutcomeCommitted, Breakouts: 2}}
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, cycles, cycles, nil)

	w := post(t, h, "/api/v1/scan")
	require.Equal(t, http.StatusOK, w.Code)
	var rep model.CycleReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, "c-10", rep.ID)
	assert.Equal(t, model.OutcomeCommitted, rep.Outcome)
	assert.Equal(t, 1, cycles.runs)
}

func TestTriggerScan_InProgress(t *testing.T) {
	cycles := &stubCycles{err: model.ErrCycleInProgress}
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, cycles, cycles, nil)

	w := post(t, h, "/api/v1/scan")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Scan cycle already in progress"}`, w.Body.String())
}

func TestTriggerScan_CycleErrorStillReports(t *testing.T) {
	cycles := &stubCycles{
		rep: &model.CycleReport{ID: "c-11", Outcome: model.OutcomeUniverseUnavailable},
		err: model.ErrUniverseUnavailable,
	}
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, cycles, cycles, nil)

	w := post(t, h, "/api/v1/scan")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "universe_unavailable")
}

func TestTriggerScan_NotRegisteredWithoutTrigger(t *testing.T) {
	h := NewHandler(&stubSnapshots{snap: model.EmptySnapshot()}, &stubHistory{}, nil, nil, nil)
	w := post(t, h, "/api/v1/scan")
	assert.NotEqual(t, http.StatusOK, w.Code)
}
