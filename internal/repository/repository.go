package repository

import (
	"context"
	"database/sql"
	"time"

	"battery_monitor/internal/models"
)

// SampleRepo journals live samples received from the push channel.
type SampleRepo interface {
	Append(ctx context.Context, s models.Sample) error
	List(ctx context.Context, from, to time.Time) ([]models.Sample, error)
}

// ExportRepo records completed CSV exports.
type ExportRepo interface {
	Record(ctx context.Context, r models.ExportRecord) error
	Last(ctx context.Context) (models.ExportRecord, error)
}

type Repository struct {
	SampleRepo SampleRepo
	ExportRepo ExportRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		SampleRepo: NewSampleSQLite(db),
		ExportRepo: NewExportSQLite(db),
	}
}
