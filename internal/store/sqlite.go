package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/andresmejia3/streetcurate/internal/types"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the single-file backend.
type SQLite struct {
	conn *sql.DB
}

// NewSQLite opens (creating if needed) the database file at path and
// migrates its schema.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, persistErr("failed to open database", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &SQLite{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, persistErr("failed to migrate database", err)
	}
	return db, nil
}

func (db *SQLite) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root TEXT NOT NULL,
		kept INTEGER NOT NULL,
		removed INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS detections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		image_id TEXT NOT NULL,
		city TEXT NOT NULL,
		date TIMESTAMP,
		class_id INTEGER,
		x REAL,
		y REAL,
		w REAL,
		h REAL,
		confidence REAL,
		class_name TEXT,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS summaries (
		run_id INTEGER NOT NULL,
		image_id TEXT NOT NULL,
		city TEXT NOT NULL,
		year INTEGER NOT NULL,
		in_city BOOLEAN NOT NULL,
		car INTEGER NOT NULL,
		traffic_light INTEGER NOT NULL,
		person INTEGER NOT NULL,
		PRIMARY KEY (run_id, image_id, city, year),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_detections_run_id ON detections(run_id);
	`

	_, err := db.conn.ExecContext(ctx, schema)
	return err
}

func (db *SQLite) Close(ctx context.Context) {
	db.conn.Close()
}

func (db *SQLite) CreateRun(ctx context.Context, root string, kept, removed int) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO runs (root, kept, removed) VALUES (?, ?, ?)", root, kept, removed)
	if err != nil {
		return 0, persistErr("failed to create run", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, persistErr("failed to read run id", err)
	}
	return id, nil
}

// InsertDetections adds data in a single transaction.
func (db *SQLite) InsertDetections(ctx context.Context, runID int64, data types.Dataset) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO detections (run_id, "+detectionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return persistErr("failed to prepare statement", err)
	}
	defer stmt.Close()

	for _, d := range data {
		if _, err := stmt.ExecContext(ctx, append([]any{runID}, detectionArgs(d)...)...); err != nil {
			return persistErr(fmt.Sprintf("failed to insert detection of %s", d.ImageID), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("failed to commit detections", err)
	}
	return nil
}

func (db *SQLite) LoadDetections(ctx context.Context, runID int64) (types.Dataset, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+detectionColumns+" FROM detections WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, persistErr("failed to query detections", err)
	}
	defer rows.Close()

	var data types.Dataset
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, persistErr("failed to scan detection", err)
		}
		data = append(data, d)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("failed to read detections", err)
	}
	return data, nil
}

func (db *SQLite) InsertSummaries(ctx context.Context, runID int64, summaries []types.ImageSummary) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO summaries (run_id, image_id, city, year, in_city, car, traffic_light, person)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return persistErr("failed to prepare statement", err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		if _, err := stmt.ExecContext(ctx, runID, s.ImageID, s.City, s.Year, s.InCity, s.Cars, s.TrafficLight, s.Persons); err != nil {
			return persistErr(fmt.Sprintf("failed to insert summary of %s", s.ImageID), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr("failed to commit summaries", err)
	}
	return nil
}

func (db *SQLite) ListRuns(ctx context.Context) ([]types.Run, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id, root, kept, removed, created_at FROM runs ORDER BY id")
	if err != nil {
		return nil, persistErr("failed to query runs", err)
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		var r types.Run
		if err := rows.Scan(&r.ID, &r.Root, &r.Kept, &r.Removed, &r.CreatedAt); err != nil {
			return nil, persistErr("failed to scan run", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("failed to read runs", err)
	}
	return runs, nil
}

func (db *SQLite) Reset(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx, `
		DROP TABLE IF EXISTS summaries;
		DROP TABLE IF EXISTS detections;
		DROP TABLE IF EXISTS runs;
	`)
	if err != nil {
		return persistErr("failed to drop tables", err)
	}
	return nil
}
