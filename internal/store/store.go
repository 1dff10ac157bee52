// Package store persists curation runs, their detections and the exported
// summaries. Two backends share one schema: PostgreSQL through pgx and a
// local SQLite file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/andresmejia3/streetcurate/internal/types"
	"github.com/andresmejia3/streetcurate/internal/utils"
)

// Store is implemented by every backend.
type Store interface {
	// CreateRun records a curation pass over root and returns its id.
	CreateRun(ctx context.Context, root string, kept, removed int) (int64, error)
	InsertDetections(ctx context.Context, runID int64, data types.Dataset) error
	// LoadDetections returns the detections of a run in insertion order.
	LoadDetections(ctx context.Context, runID int64) (types.Dataset, error)
	InsertSummaries(ctx context.Context, runID int64, summaries []types.ImageSummary) error
	ListRuns(ctx context.Context) ([]types.Run, error)
	// Reset drops every table owned by the store.
	Reset(ctx context.Context) error
	Close(ctx context.Context)
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*SQLite)(nil)
)

// Open connects to the database named by url and migrates its schema.
//
//	postgres://... or postgresql://...  PostgreSQL
//	sqlite://path or path/to/file.db     SQLite
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgres(ctx, url)
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasSuffix(url, ".db"):
		return NewSQLite(ctx, url)
	}
	return nil, fmt.Errorf("unsupported database url %q: expected postgres://, sqlite:// or a .db file", url)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", utils.ErrPersistence, op, err)
}

const detectionColumns = "image_id, city, date, class_id, x, y, w, h, confidence, class_name"

// detectionArgs flattens d into column values, nil for nulls.
func detectionArgs(d types.Detection) []any {
	var date, classID, className any
	if d.Date.Valid {
		date = d.Date.Time
	}
	if d.ClassID.Valid {
		classID = d.ClassID.Int64
	}
	if d.ClassName.Valid {
		className = d.ClassName.String
	}
	return []any{
		d.ImageID, d.City, date, classID,
		floatArg(d.X), floatArg(d.Y), floatArg(d.W), floatArg(d.H), floatArg(d.Confidence),
		className,
	}
}

func floatArg(f sql.NullFloat64) any {
	if !f.Valid {
		return nil
	}
	return f.Float64
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

// scanner is satisfied by both pgx.Rows and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDetection reads one row selected as detectionColumns.
func scanDetection(row scanner) (types.Detection, error) {
	var (
		d          types.Detection
		date       *time.Time
		classID    *int64
		x, y, w, h *float64
		conf       *float64
		className  *string
	)
	if err := row.Scan(&d.ImageID, &d.City, &date, &classID, &x, &y, &w, &h, &conf, &className); err != nil {
		return d, err
	}
	if date != nil {
		d.Date = sql.NullTime{Time: date.UTC(), Valid: true}
	}
	if classID != nil {
		d.ClassID = sql.NullInt64{Int64: *classID, Valid: true}
	}
	d.X, d.Y, d.W, d.H = nullFloat(x), nullFloat(y), nullFloat(w), nullFloat(h)
	d.Confidence = nullFloat(conf)
	if className != nil {
		d.ClassName = sql.NullString{String: *className, Valid: true}
	}
	return d, nil
}
