package sim

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"racedash-sim/internal/telemetry"
)

// SQLiteWriter records frames into a local SQLite database: the input
// columns for querying plus the full snapshot as JSON for replay.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter opens (or creates) the database at path.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps in-memory databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS telemetry_frames (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		ts TEXT NOT NULL,
		brake REAL,
		throttle REAL,
		clutch REAL,
		speed REAL,
		gear INTEGER,
		abs_active INTEGER,
		tc_active INTEGER,
		abs_setting INTEGER,
		tc_setting INTEGER,
		snapshot TEXT NOT NULL
	)`)
	if err == nil {
		_, err = db.Exec(`CREATE TABLE IF NOT EXISTS session_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts TEXT NOT NULL,
			track TEXT,
			document TEXT NOT NULL
		)`)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write records a single telemetry frame.
func (w *SQLiteWriter) Write(f telemetry.Frame) error {
	return w.WriteBatch([]telemetry.Frame{f})
}

// WriteBatch records frames in one transaction.
func (w *SQLiteWriter) WriteBatch(frames []telemetry.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO telemetry_frames
		(run_id, seq, ts, brake, throttle, clutch, speed, gear, abs_active, tc_active, abs_setting, tc_setting, snapshot)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range frames {
		in := telemetry.InputsOf(f.Telemetry)
		snap, err := json.Marshal(f.Telemetry)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", f.Seq, err)
		}
		_, err = stmt.Exec(f.RunID, f.Seq, f.Timestamp.UTC().Format(time.RFC3339Nano),
			in.Brake, in.Throttle, in.Clutch, in.Speed, in.Gear, in.ABSActive,
			nullable(in.TCActive), nullable(in.ABSSetting), nullable(in.TCSetting), string(snap))
		if err != nil {
			return fmt.Errorf("insert frame %d: %w", f.Seq, err)
		}
	}
	return tx.Commit()
}

// WriteSession records a session document as JSON.
func (w *SQLiteWriter) WriteSession(f telemetry.SessionFrame) error {
	doc, err := json.Marshal(f.Session)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", f.Seq, err)
	}
	var track string
	if f.Session != nil {
		track = f.Session.WeekendInfo.TrackName
	}
	_, err = w.db.Exec(`INSERT INTO session_frames (run_id, seq, ts, track, document) VALUES (?, ?, ?, ?, ?)`,
		f.RunID, f.Seq, f.Timestamp.UTC().Format(time.RFC3339Nano), track, string(doc))
	if err != nil {
		return fmt.Errorf("insert session %d: %w", f.Seq, err)
	}
	return nil
}

// Frames reads back the telemetry frames of a run in sequence order. An
// empty runID selects the most recent run.
func (w *SQLiteWriter) Frames(runID string) ([]telemetry.Frame, error) {
	if runID == "" {
		err := w.db.QueryRow(`SELECT run_id FROM telemetry_frames ORDER BY id DESC LIMIT 1`).Scan(&runID)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("latest run: %w", err)
		}
	}
	rows, err := w.db.Query(`SELECT seq, ts, snapshot FROM telemetry_frames WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []telemetry.Frame
	for rows.Next() {
		var (
			f    telemetry.Frame
			ts   string
			snap string
		)
		if err := rows.Scan(&f.Seq, &ts, &snap); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if f.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("frame %d timestamp: %w", f.Seq, err)
		}
		if err := json.Unmarshal([]byte(snap), &f.Telemetry); err != nil {
			return nil, fmt.Errorf("frame %d snapshot: %w", f.Seq, err)
		}
		f.RunID = runID
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// Close closes the database.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
