package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"battery_monitor/internal/logger"
	"battery_monitor/internal/models"
	"battery_monitor/internal/repository"

	"github.com/google/uuid"
)

// ArtifactSource produces CSV exports.
type ArtifactSource interface {
	RequestExportArtifact(ctx context.Context, w models.Window) ([]byte, error)
}

// Notices shown to the user when an export cannot be produced.
const (
	NoticeBackendDown = "Backend server is not running. Please start the server to download CSV files."
	NoticeNoData      = "No battery data is available for the selected range."
	NoticeSaveFailed  = "The export could not be saved. Please try again."
)

// ErrExportUnavailable matches every export failure.
var ErrExportUnavailable = errors.New("export unavailable")

// ErrInvalidTimeRange is returned when a window starts after it ends.
var ErrInvalidTimeRange = errors.New("invalid time range: start must be <= end")

// ExportError carries the notice to show for a failed export.
type ExportError struct {
	Notice string
	Err    error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return "export: " + e.Notice
	}
	return fmt.Sprintf("export: %s: %v", e.Notice, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

func (e *ExportError) Is(target error) bool { return target == ErrExportUnavailable }

type ExportService struct {
	src  ArtifactSource
	repo repository.ExportRepo
	dir  string
	log  *logger.Logger
	now  func() time.Time
}

func NewExportService(src ArtifactSource, repo repository.ExportRepo, dir string, log *logger.Logger) *ExportService {
	return &ExportService{
		src:  src,
		repo: repo,
		dir:  dir,
		log:  logger.OrNop(log).Named("export"),
		now:  time.Now,
	}
}

// Export downloads the CSV for w, saves it under the export directory and
// records it. A zero window exports everything the backend offers.
func (s *ExportService) Export(ctx context.Context, w models.Window) (models.ExportRecord, error) {
	w.Start, w.End = normalizeToUTC(w.Start), normalizeToUTC(w.End)
	if !w.Start.IsZero() && !w.End.IsZero() && w.Start.After(w.End) {
		return models.ExportRecord{}, ErrInvalidTimeRange
	}

	body, err := s.src.RequestExportArtifact(ctx, w)
	if err != nil {
		s.log.Warnw("export_request_failed", "err", err)
		return models.ExportRecord{}, &ExportError{Notice: NoticeBackendDown, Err: err}
	}
	if len(body) == 0 {
		return models.ExportRecord{}, &ExportError{Notice: NoticeNoData}
	}

	rec := models.ExportRecord{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Start:     w.Start,
		End:       w.End,
		Bytes:     len(body),
	}
	rec.Path = filepath.Join(s.dir, fmt.Sprintf("battery-%s-%s.csv", rec.CreatedAt.Format("20060102T150405Z"), rec.ID[:8]))

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return models.ExportRecord{}, &ExportError{Notice: NoticeSaveFailed, Err: err}
	}
	if err := os.WriteFile(rec.Path, body, 0o644); err != nil {
		return models.ExportRecord{}, &ExportError{Notice: NoticeSaveFailed, Err: err}
	}

	if s.repo != nil {
		if err := s.repo.Record(ctx, rec); err != nil {
			// The file is on disk; only the "last export" label is affected.
			s.log.Warnw("export_record_failed", "id", rec.ID, "err", err)
		}
	}
	s.log.Infow("export_saved", "id", rec.ID, "path", rec.Path, "bytes", rec.Bytes)
	return rec, nil
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
