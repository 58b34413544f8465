package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"PivotScreener/internal/logger"
	"PivotScreener/internal/model"
)

const (
	defaultCycleLimit = 20
	maxCycleLimit     = 200
)

// SnapshotReader exposes the live scan results.
type SnapshotReader interface {
	Read() *model.Snapshot
	Dirty() bool
}

// CycleHistory exposes recorded scan cycles.
type CycleHistory interface {
	RecentCycles(limit int) ([]model.CycleReport, error)
}

// CycleStatus reports the most recently finished scan cycle.
type CycleStatus interface {
	LastReport() *model.CycleReport
}

// CycleTrigger runs a scan cycle on demand.
type CycleTrigger interface {
	RunNow() (*model.CycleReport, error)
}

// Handler serves the query endpoints and the manual scan trigger.
type Handler struct {
	snapshots SnapshotReader
	history   CycleHistory
	status    CycleStatus
	trigger   CycleTrigger
	log       *zap.Logger
}

// NewHandler creates a new handler. status and trigger may be nil; without a
// trigger the manual scan route is not registered.
func NewHandler(snapshots SnapshotReader, history CycleHistory, status CycleStatus, trigger CycleTrigger, l *zap.Logger) *Handler {
	return &Handler{
		snapshots: snapshots,
		history:   history,
		status:    status,
		trigger:   trigger,
		log:       logger.OrDefault(l).Named("api"),
	}
}

// Router wires all routes and middleware.
func (h *Handler) Router() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", h.Home).Methods(http.MethodGet)
	router.HandleFunc("/scan", h.LatestScan).Methods(http.MethodGet)
	router.HandleFunc("/scan/", h.LatestScan).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/cycles", h.ListCycles).Methods(http.MethodGet)
	if h.trigger != nil {
		v1.HandleFunc("/scan", h.TriggerScan).Methods(http.MethodPost)
	}

	router.Use(
		mux.MiddlewareFunc(LoggingMiddleware(h.log)),
		mux.MiddlewareFunc(RecoveryMiddleware(h.log)),
	)
	return router
}

// Home handles GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Stock Screener is running!"})
}

// LatestScan handles GET /scan/. It never fails: it returns the last
// committed snapshot, or a placeholder message before anything qualified.
func (h *Handler) LatestScan(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Read()
	if snap.Empty() {
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "No stocks met the criteria yet"})
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshots.Read()
	body := map[string]interface{}{
		"status":         "healthy",
		"snapshot_dirty": h.snapshots.Dirty(),
		"breakouts":      len(snap.Breakouts),
		"breakdowns":     len(snap.Breakdowns),
	}
	if !snap.UpdatedAt.IsZero() {
		body["snapshot_updated_at"] = snap.UpdatedAt.Format(time.RFC3339)
	}
	if h.status != nil {
		if rep := h.status.LastReport(); rep != nil {
			body["last_cycle"] = map[string]interface{}{
				"id":          rep.ID,
				"outcome":     rep.Outcome,
				"finished_at": rep.FinishedAt.Format(time.RFC3339),
			}
		}
	}
	respondWithJSON(w, http.StatusOK, body)
}

// TriggerScan handles POST /api/v1/scan. It runs one cycle synchronously and
// returns its report; a cycle already in flight yields 409.
func (h *Handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	rep, err := h.trigger.RunNow()
	switch {
	case errors.Is(err, model.ErrCycleInProgress):
		respondWithError(w, http.StatusConflict, "Scan cycle already in progress")
	case rep == nil:
		h.log.Error("manual scan failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to run scan cycle")
	default:
		if err != nil {
			h.log.Warn("manual scan finished with error",
				zap.String("outcome", string(rep.Outcome)), zap.Error(err))
		}
		respondWithJSON(w, http.StatusOK, rep)
	}
}

// ListCycles handles GET /api/v1/cycles?limit=N
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	limit := defaultCycleLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxCycleLimit)
	}

	cycles, err := h.history.RecentCycles(limit)
	if err != nil {
		h.log.Error("list cycles failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve cycles")
		return
	}
	if cycles == nil {
		cycles = []model.CycleReport{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cycles": cycles,
		"count":  len(cycles),
	})
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
