package service

import (
	"context"
	"time"

	"battery_monitor/internal/models"
	"battery_monitor/internal/repository"
)

// SampleFilter bounds a journal query.
type SampleFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
}

type JournalService struct {
	repo repository.SampleRepo
}

func NewJournalService(repo repository.SampleRepo) *JournalService {
	return &JournalService{repo: repo}
}

// List returns journaled live samples, oldest first.
func (s *JournalService) List(ctx context.Context, f SampleFilter) ([]models.Sample, error) {
	from, to := normalizeToUTC(f.From), normalizeToUTC(f.To)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return nil, ErrInvalidTimeRange
	}
	return s.repo.List(ctx, from, to)
}
