package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"battery_monitor/internal/models"
)

type SampleSQLite struct {
	db *sql.DB
}

func NewSampleSQLite(db *sql.DB) *SampleSQLite { return &SampleSQLite{db: db} }

const (
	insertSampleSQL = `
		INSERT OR IGNORE INTO battery_samples (id, voltage, percentage, captured_at, date_time)
		VALUES (?, ?, ?, ?, ?)
	`
	selectSamplesSQL = `SELECT id, voltage, percentage, captured_at, date_time FROM battery_samples`
)

// Append stores a sample. A sample whose id is already journaled is ignored.
func (r *SampleSQLite) Append(ctx context.Context, s models.Sample) error {
	_, err := r.db.ExecContext(ctx, insertSampleSQL,
		s.ID,
		s.Voltage,
		s.Percentage,
		s.Timestamp,
		s.DateTime,
	)
	return err
}

// List returns samples captured within [from, to] (inclusive), oldest first.
// Zero bounds are open.
func (r *SampleSQLite) List(ctx context.Context, from, to time.Time) ([]models.Sample, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "captured_at >= ?")
		args = append(args, from.UnixMilli())
	}
	if !to.IsZero() {
		conds = append(conds, "captured_at <= ?")
		args = append(args, to.UnixMilli())
	}

	q := selectSamplesSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY captured_at ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Sample, 0, 64)
	for rows.Next() {
		var s models.Sample
		if err := rows.Scan(&s.ID, &s.Voltage, &s.Percentage, &s.Timestamp, &s.DateTime); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
