package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"community-load-profiles/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// Initialize DB connection
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	// Create tables if not exists
	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		config TEXT,
		status TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`
	stageTable := `
	CREATE TABLE IF NOT EXISTS stage_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		run_index INTEGER,
		stage TEXT,
		status TEXT,
		created_at DATETIME
	);
	`

	if _, err := db.Exec(runTable); err != nil {
		return err
	}
	if _, err := db.Exec(errorTable); err != nil {
		return err
	}
	if _, err := db.Exec(stageTable); err != nil {
		return err
	}

	return nil
}

// SaveRun stores a new scenario run
func SaveRun(runID string, cfg model.ScenarioConfig) error {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, config, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		runID, cfgJSON, "pending", now, now)
	return err
}

// SaveRunError records an error for a scenario run
func SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// SaveStageProgress records one stage transition of one aggregation run
func SaveStageProgress(runID string, runIndex int, stage, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO stage_progress (run_id, run_index, stage, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, runIndex, stage, status, now)
	return err
}

// ListRuns returns all scenario runs with basic info
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, created_at, updated_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&id, &status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, map[string]interface{}{
			"id":        id,
			"status":    status,
			"createdAt": createdAt,
			"updatedAt": updatedAt,
		})
	}
	return runs, rows.Err()
}

// GetRun fetches full scenario config and status
func GetRun(runID string) (map[string]interface{}, error) {
	var cfgJSON string
	var status string
	var createdAt, updatedAt time.Time

	err := db.QueryRow(`SELECT config, status, created_at, updated_at FROM runs WHERE id = ?`, runID).
		Scan(&cfgJSON, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	var cfg model.ScenarioConfig
	if err := json.Unmarshal([]byte(cfgJSON), &cfg); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":        runID,
		"config":    cfg,
		"status":    status,
		"createdAt": createdAt,
		"updatedAt": updatedAt,
	}, nil
}

// GetRunErrors returns recorded errors for a scenario run
func GetRunErrors(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT error_message, created_at FROM run_errors WHERE run_id = ? ORDER BY created_at`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var msg string
		var createdAt time.Time
		if err := rows.Scan(&msg, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]interface{}{
			"error":     msg,
			"createdAt": createdAt,
		})
	}
	return out, rows.Err()
}

// GetStageProgress returns stage transitions for a scenario run in order
func GetStageProgress(runID string) ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT run_index, stage, status, created_at FROM stage_progress WHERE run_id = ? ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		var runIndex int
		var stage, status string
		var createdAt time.Time
		if err := rows.Scan(&runIndex, &stage, &status, &createdAt); err != nil {
			return nil, err
		}
		out = append(out, map[string]interface{}{
			"run":       runIndex,
			"stage":     stage,
			"status":    status,
			"createdAt": createdAt,
		})
	}
	return out, rows.Err()
}

// UpdateRunStatus updates scenario run status
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}
