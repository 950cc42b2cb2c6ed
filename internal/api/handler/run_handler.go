package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"community-load-profiles/internal/engine"
	"community-load-profiles/internal/model"
	"community-load-profiles/internal/store"
)

var log = zap.NewNop().Sugar()

// SetLogger replaces the package logger. Call once at startup.
func SetLogger(l *zap.SugaredLogger) { log = l }

// results keeps finished scenario results in memory, keyed by run ID. The
// store holds run metadata and progress; full profiles stay here.
var results sync.Map

// storeTracker persists engine stage notifications for one run ID.
type storeTracker struct {
	runID string
}

func (t storeTracker) Stage(run int, stage, status string) {
	if err := store.SaveStageProgress(t.runID, run, stage, status); err != nil {
		log.Warnw("save stage progress", "run_id", t.runID, "err", err)
	}
}

func (t storeTracker) RunFinished(run int, cohort []string, err error) {
	if err != nil {
		store.SaveRunError(t.runID, err)
	}
}

// CreateRun creates a new aggregation scenario run
// @Summary Create a new scenario run
// @Description Create and start a new load profile aggregation run with the provided configuration
// @Tags runs
// @Accept json
// @Produce json
// @Param run body model.ScenarioConfig true "Scenario configuration"
// @Success 200 {object} map[string]interface{} "Run created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func CreateRun(w http.ResponseWriter, r *http.Request) {
	var cfg model.ScenarioConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()

	if err := store.SaveRun(runID, cfg); err != nil {
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	// Execute the scenario asynchronously; progress and errors land in the
	// store, the finished result in the in-memory map.
	go func() {
		store.UpdateRunStatus(runID, "running")
		eng := engine.New(cfg, log, engine.WithTracker(storeTracker{runID: runID}))
		result, err := eng.RunScenario(context.Background())
		if err != nil {
			store.SaveRunError(runID, err)
			store.UpdateRunStatus(runID, "failed")
			return
		}
		results.Store(runID, result)
		store.UpdateRunStatus(runID, "completed")
	}()

	resp := map[string]interface{}{
		"message":   "Run created successfully!",
		"runID":     runID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// ListRuns retrieves all scenario runs
// @Summary List all runs
// @Description Get a list of all scenario runs with their current status
// @Tags runs
// @Accept json
// @Produce json
// @Success 200 {array} map[string]interface{} "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// GetRun retrieves a specific scenario run
// @Summary Get run
// @Description Retrieve configuration and status of a specific scenario run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func GetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := store.GetRun(runID)
	if err != nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

// GetRunErrors retrieves errors for a scenario run
// @Summary Get run errors
// @Description Retrieve all errors that occurred during run execution
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/errors [get]
func GetRunErrors(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	errors, err := store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"errors": errors,
		"count":  len(errors),
	})
}

// GetRunProgress retrieves stage progress for a scenario run
// @Summary Get run progress
// @Description Retrieve stage transitions for each aggregation pass of a run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Stage progress"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs/{id}/progress [get]
func GetRunProgress(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	progress, err := store.GetStageProgress(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve progress", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":   runID,
		"progress": progress,
		"count":    len(progress),
	})
}

// GetRunResults retrieves the finished profiles for a scenario run
// @Summary Get run results
// @Description Retrieve the averaged profile and typical days of a completed run
// @Tags runs
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run results"
// @Failure 404 {object} map[string]interface{} "Results not available"
// @Router /runs/{id}/results [get]
func GetRunResults(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	v, ok := results.Load(runID)
	if !ok {
		http.Error(w, "Results not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id": runID,
		"result": v,
	})
}

// Health reports service liveness
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string "Service status"
// @Router /healthz [get]
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
