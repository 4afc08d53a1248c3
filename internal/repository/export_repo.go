package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"battery_monitor/internal/models"

	"github.com/google/uuid"
)

type ExportSQLite struct {
	db *sql.DB
}

func NewExportSQLite(db *sql.DB) *ExportSQLite { return &ExportSQLite{db: db} }

// ErrNoExports is returned by Last when nothing was exported yet.
var ErrNoExports = errors.New("no exports recorded")

const (
	insertExportSQL = `
		INSERT INTO battery_exports (id, created_at, start_at, end_at, path, bytes)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	selectLastExportSQL = `
		SELECT id, created_at, start_at, end_at, path, bytes
		FROM battery_exports ORDER BY created_at DESC LIMIT 1
	`
)

// nullableTime maps a zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Record inserts an export. If ID or CreatedAt are empty, they're set.
func (r *ExportSQLite) Record(ctx context.Context, e models.ExportRecord) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, insertExportSQL,
		e.ID,
		e.CreatedAt.UTC(),
		nullableTime(e.Start),
		nullableTime(e.End),
		e.Path,
		e.Bytes,
	)
	return err
}

// Last returns the most recent export, or ErrNoExports.
func (r *ExportSQLite) Last(ctx context.Context) (models.ExportRecord, error) {
	var (
		e          models.ExportRecord
		start, end sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, selectLastExportSQL).Scan(&e.ID, &e.CreatedAt, &start, &end, &e.Path, &e.Bytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ExportRecord{}, ErrNoExports
		}
		return models.ExportRecord{}, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if start.Valid {
		e.Start = start.Time.UTC()
	}
	if end.Valid {
		e.End = end.Time.UTC()
	}
	return e, nil
}
