package service

import (
	"context"
	"errors"
	"time"

	"battery_monitor/internal/client"
	"battery_monitor/internal/logger"
	"battery_monitor/internal/models"
	"battery_monitor/internal/repository"
)

// HistoryFetcher loads a historical window from the backend.
type HistoryFetcher interface {
	FetchHistoricalWindow(ctx context.Context, w models.Window) ([]models.Sample, error)
}

type StatsService struct {
	remote  HistoryFetcher
	exports repository.ExportRepo
	log     *logger.Logger
}

func NewStatsService(remote HistoryFetcher, exports repository.ExportRepo, log *logger.Logger) *StatsService {
	return &StatsService{remote: remote, exports: exports, log: logger.OrNop(log).Named("stats")}
}

// Summary averages the default trailing window. When the backend is
// unreachable it returns demo figures instead of failing.
func (s *StatsService) Summary(ctx context.Context) (models.LogStats, error) {
	var out models.LogStats

	rows, err := s.remote.FetchHistoricalWindow(ctx, models.Window{})
	switch {
	case err == nil:
		out = average(rows)
	case client.IsTransport(err):
		s.log.Infow("stats_demo_fallback", "err", err)
		out = DemoStats()
	default:
		return models.LogStats{}, err
	}

	out.LastExport = s.lastExport(ctx)
	return out, nil
}

func (s *StatsService) lastExport(ctx context.Context) *time.Time {
	if s.exports == nil {
		return nil
	}
	rec, err := s.exports.Last(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrNoExports) {
			s.log.Warnw("stats_last_export_failed", "err", err)
		}
		return nil
	}
	at := rec.CreatedAt
	return &at
}

func average(rows []models.Sample) models.LogStats {
	if len(rows) == 0 {
		return models.LogStats{}
	}
	var v, p float64
	for _, r := range rows {
		v += r.Voltage
		p += r.Percentage
	}
	n := float64(len(rows))
	return models.LogStats{TotalRecords: len(rows), AvgVoltage: v / n, AvgBattery: p / n}
}
