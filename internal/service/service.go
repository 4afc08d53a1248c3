package service

import (
	"context"

	"battery_monitor/internal/logger"
	"battery_monitor/internal/models"
	"battery_monitor/internal/repository"
)

// Sync exposes the synchronized dashboard view.
type Sync interface {
	Start(ctx context.Context) error
	Stop()
	Snapshot() models.SyncState
	History() []models.Sample
}

// Statistics summarizes the trailing history window for the log screen.
type Statistics interface {
	Summary(ctx context.Context) (models.LogStats, error)
}

// Exporter saves a CSV export of the backend's data.
type Exporter interface {
	Export(ctx context.Context, w models.Window) (models.ExportRecord, error)
}

// StatusReporter reports the backend's own health.
type StatusReporter interface {
	SystemStatus(ctx context.Context) (models.SystemStatus, error)
}

// Journal exposes live samples persisted locally.
type Journal interface {
	List(ctx context.Context, f SampleFilter) ([]models.Sample, error)
}

// Backend is everything the services need from the monitoring backend.
type Backend interface {
	RemoteData
	StatusFetcher
	ArtifactSource
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Sync
	Statistics
	Exporter
	StatusReporter
	Journal
}

// Options tune NewService. Zero values pick defaults.
type Options struct {
	HistorySize int
	ExportDir   string
	Metrics     SyncMetrics
	Logger      *logger.Logger
}

// NewService wires the backend, push channel and local repositories into
// concrete services.
func NewService(repos *repository.Repository, backend Backend, ch PushChannel, opts Options) *Service {
	return &Service{
		Sync: NewSyncController(backend, ch, SyncOptions{
			HistorySize: opts.HistorySize,
			Journal:     repos.SampleRepo,
			Metrics:     opts.Metrics,
			Logger:      opts.Logger,
		}),
		Statistics:     NewStatsService(backend, repos.ExportRepo, opts.Logger),
		Exporter:       NewExportService(backend, repos.ExportRepo, opts.ExportDir, opts.Logger),
		StatusReporter: NewStatusService(backend),
		Journal:        NewJournalService(repos.SampleRepo),
	}
}
