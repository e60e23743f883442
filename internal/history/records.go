package history

import (
	"database/sql"
	"fmt"
	"time"
)

// MatchRecord is a persisted template match above threshold
type MatchRecord struct {
	ID         int64
	Template   string
	Confidence float64
	X          int
	Y          int
	MatchedAt  time.Time
}

// ExecutionRecord is a persisted macro invocation
type ExecutionRecord struct {
	ID              int64
	MacroName       string
	TriggerTemplate string
	Success         bool
	ErrorMessage    string
	StartedAt       time.Time
	DurationMS      int64
}

// RecordMatch stores a template match
func (db *DB) RecordMatch(template string, confidence float64, x, y int) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO matches (template, confidence, x, y, matched_at)
			VALUES (?, ?, ?, ?, ?)
		`, template, confidence, x, y, time.Now())
		if err != nil {
			return fmt.Errorf("failed to insert match record: %w", err)
		}
		return nil
	})
}

// RecordExecution stores a macro invocation outcome
func (db *DB) RecordExecution(macroName, triggerTemplate string, success bool, errMessage string, startedAt time.Time, duration time.Duration) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO executions (macro_name, trigger_template, success, error_message, started_at, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?)
		`, macroName, triggerTemplate, success, errMessage, startedAt, duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to insert execution record: %w", err)
		}
		return nil
	})
}

// RecentMatches returns the most recent match records, newest first
func (db *DB) RecentMatches(limit int) ([]MatchRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, template, confidence, x, y, matched_at
		FROM matches
		ORDER BY matched_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var records []MatchRecord
	for rows.Next() {
		var r MatchRecord
		if err := rows.Scan(&r.ID, &r.Template, &r.Confidence, &r.X, &r.Y, &r.MatchedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// RecentExecutions returns the most recent execution records, newest first
func (db *DB) RecentExecutions(limit int) ([]ExecutionRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, macro_name, trigger_template, success, error_message, started_at, duration_ms
		FROM executions
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var records []ExecutionRecord
	for rows.Next() {
		var r ExecutionRecord
		var trigger, errMsg sql.NullString
		if err := rows.Scan(&r.ID, &r.MacroName, &trigger, &r.Success, &errMsg, &r.StartedAt, &r.DurationMS); err != nil {
			return nil, err
		}
		r.TriggerTemplate = trigger.String
		r.ErrorMessage = errMsg.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// ExecutionStats returns per-macro success and failure counts
func (db *DB) ExecutionStats() (map[string][2]int64, error) {
	rows, err := db.conn.Query(`
		SELECT macro_name,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END)
		FROM executions
		GROUP BY macro_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string][2]int64)
	for rows.Next() {
		var name string
		var ok, fail int64
		if err := rows.Scan(&name, &ok, &fail); err != nil {
			return nil, err
		}
		stats[name] = [2]int64{ok, fail}
	}
	return stats, rows.Err()
}
