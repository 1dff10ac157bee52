package store

import (
	"context"
	"fmt"

	"github.com/andresmejia3/streetcurate/internal/types"
	"github.com/jackc/pgx/v5"
)

// Postgres is the PostgreSQL backend.
type Postgres struct {
	conn *pgx.Conn
}

// NewPostgres establishes a connection to the database and ensures the schema is initialized.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, persistErr("failed to connect to postgres", err)
	}

	// Initialize schema (Auto-Migration)
	if err := initPostgres(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, persistErr("failed to initialize database schema", err)
	}

	return &Postgres{conn: conn}, nil
}

func initPostgres(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS runs (
			id BIGSERIAL PRIMARY KEY,
			root TEXT NOT NULL,
			kept INT NOT NULL,
			removed INT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS detections (
			id BIGSERIAL PRIMARY KEY,
			run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			image_id TEXT NOT NULL,
			city TEXT NOT NULL,
			date DATE,
			class_id BIGINT,
			x DOUBLE PRECISION,
			y DOUBLE PRECISION,
			w DOUBLE PRECISION,
			h DOUBLE PRECISION,
			confidence DOUBLE PRECISION,
			class_name TEXT
		);
		CREATE INDEX IF NOT EXISTS detections_run_id_idx ON detections (run_id);
		CREATE TABLE IF NOT EXISTS summaries (
			run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			image_id TEXT NOT NULL,
			city TEXT NOT NULL,
			year INT NOT NULL,
			in_city BOOLEAN NOT NULL,
			car INT NOT NULL,
			traffic_light INT NOT NULL,
			person INT NOT NULL,
			PRIMARY KEY (run_id, image_id, city, year)
		);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Postgres) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

func (s *Postgres) CreateRun(ctx context.Context, root string, kept, removed int) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx,
		"INSERT INTO runs (root, kept, removed) VALUES ($1, $2, $3) RETURNING id",
		root, kept, removed).Scan(&id)
	if err != nil {
		return 0, persistErr("failed to create run", err)
	}
	return id, nil
}

// InsertDetections bulk-loads data with the COPY protocol.
func (s *Postgres) InsertDetections(ctx context.Context, runID int64, data types.Dataset) error {
	if len(data) == 0 {
		return nil
	}
	rows := make([][]any, len(data))
	for i, d := range data {
		rows[i] = append([]any{runID}, detectionArgs(d)...)
	}
	columns := []string{"run_id", "image_id", "city", "date", "class_id", "x", "y", "w", "h", "confidence", "class_name"}
	if _, err := s.conn.CopyFrom(ctx, pgx.Identifier{"detections"}, columns, pgx.CopyFromRows(rows)); err != nil {
		return persistErr(fmt.Sprintf("failed to insert detections of run %d", runID), err)
	}
	return nil
}

func (s *Postgres) LoadDetections(ctx context.Context, runID int64) (types.Dataset, error) {
	rows, err := s.conn.Query(ctx,
		"SELECT "+detectionColumns+" FROM detections WHERE run_id = $1 ORDER BY id", runID)
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

func (s *Postgres) InsertSummaries(ctx context.Context, runID int64, summaries []types.ImageSummary) error {
	if len(summaries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sm := range summaries {
		batch.Queue(`
			INSERT INTO summaries (run_id, image_id, city, year, in_city, car, traffic_light, person)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (run_id, image_id, city, year) DO UPDATE SET
				in_city = EXCLUDED.in_city, car = EXCLUDED.car,
				traffic_light = EXCLUDED.traffic_light, person = EXCLUDED.person
		`, runID, sm.ImageID, sm.City, sm.Year, sm.InCity, sm.Cars, sm.TrafficLight, sm.Persons)
	}
	if err := s.conn.SendBatch(ctx, batch).Close(); err != nil {
		return persistErr(fmt.Sprintf("failed to insert summaries of run %d", runID), err)
	}
	return nil
}

func (s *Postgres) ListRuns(ctx context.Context) ([]types.Run, error) {
	rows, err := s.conn.Query(ctx, "SELECT id, root, kept, removed, created_at FROM runs ORDER BY id")
	if err != nil {
		return nil, persistErr("failed to query runs", err)
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Run, error) {
		var r types.Run
		err := row.Scan(&r.ID, &r.Root, &r.Kept, &r.Removed, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, persistErr("failed to read runs", err)
	}
	return runs, nil
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Postgres) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS summaries CASCADE;
		DROP TABLE IF EXISTS detections CASCADE;
		DROP TABLE IF EXISTS runs CASCADE;
	`)
	if err != nil {
		return persistErr("failed to drop tables", err)
	}
	return nil
}
