// Package teledb persists per-cycle controller telemetry to SQLite so a run
// can be inspected after the robot is powered down.
package teledb

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/annagriffin/swarm-cooperative-transport/internal/control"
)

// DB wraps the telemetry database. Each process run gets a fresh session id
// so runs can be separated in a long-lived database file.
type DB struct {
	*sql.DB
	session string
}

// NewDB opens (creating if needed) the telemetry database at path. The
// caller must have imported an SQLite driver registered as "sqlite".
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			state TEXT NOT NULL,
			linear DOUBLE NOT NULL,
			angular DOUBLE NOT NULL,
			formation_weight DOUBLE,
			collision_weight DOUBLE,
			distance_error DOUBLE,
			min_distance DOUBLE,
			at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cycles_session ON cycles(session_id, id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create telemetry schema: %w", err)
	}

	return &DB{DB: db, session: uuid.NewString()}, nil
}

// Session returns this run's session id.
func (db *DB) Session() string {
	return db.session
}

// finiteOrNull maps non-finite values (notably the +Inf "nothing detected"
// distances) to NULL for storage.
func finiteOrNull(v float64) sql.NullFloat64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// RecordCycle stores one control cycle. Implements control.Recorder.
func (db *DB) RecordCycle(rec control.CycleRecord) error {
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO cycles (
			session_id, state, linear, angular,
			formation_weight, collision_weight, distance_error, min_distance, at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		db.session,
		rec.State,
		rec.Linear,
		rec.Angular,
		finiteOrNull(rec.FormationWeight),
		finiteOrNull(rec.CollisionWeight),
		finiteOrNull(rec.DistanceError),
		finiteOrNull(rec.MinDistance),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting cycle: %w", err)
	}
	return nil
}

// CycleRow is one persisted control cycle.
type CycleRow struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	State           string    `json:"state"`
	Linear          float64   `json:"linear"`
	Angular         float64   `json:"angular"`
	FormationWeight *float64  `json:"formation_weight,omitempty"`
	CollisionWeight *float64  `json:"collision_weight,omitempty"`
	DistanceError   *float64  `json:"distance_error,omitempty"`
	MinDistance     *float64  `json:"min_distance,omitempty"`
	At              time.Time `json:"at"`
}

// RecentCycles returns up to limit cycles from the current session, newest
// first.
func (db *DB) RecentCycles(limit int) ([]CycleRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, session_id, state, linear, angular,
		       formation_weight, collision_weight, distance_error, min_distance, at
		FROM cycles
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		db.session, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRow
	for rows.Next() {
		var r CycleRow
		var atStr string
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.State, &r.Linear, &r.Angular,
			&r.FormationWeight, &r.CollisionWeight, &r.DistanceError, &r.MinDistance, &atStr,
		); err != nil {
			return nil, fmt.Errorf("scanning cycle row: %w", err)
		}
		if at, err := time.Parse(time.RFC3339Nano, atStr); err == nil {
			r.At = at
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
