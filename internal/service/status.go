package service

import (
	"context"

	"battery_monitor/internal/models"
)

// StatusFetcher reads the backend's own health report.
type StatusFetcher interface {
	FetchStatus(ctx context.Context) (*models.SystemStatus, error)
}

type StatusService struct {
	remote StatusFetcher
}

func NewStatusService(remote StatusFetcher) *StatusService {
	return &StatusService{remote: remote}
}

// SystemStatus returns the backend status. A backend that reports no status
// yields a zero value rather than nil.
func (s *StatusService) SystemStatus(ctx context.Context) (models.SystemStatus, error) {
	st, err := s.remote.FetchStatus(ctx)
	if err != nil {
		return models.SystemStatus{}, err
	}
	if st == nil {
		return models.SystemStatus{}, nil
	}
	return *st, nil
}
