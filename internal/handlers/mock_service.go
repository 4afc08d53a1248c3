package handlers

import (
	"context"

	"battery_monitor/internal/models"
	"battery_monitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// ---- Service Mocks ----

type mockSync struct {
	state models.SyncState
}

func (m *mockSync) Start(ctx context.Context) error { return nil }
func (m *mockSync) Stop()                           {}
func (m *mockSync) Snapshot() models.SyncState      { return m.state }
func (m *mockSync) History() []models.Sample        { return m.state.History }

type mockStats struct {
	stats models.LogStats
	err   error
}

func (m *mockStats) Summary(ctx context.Context) (models.LogStats, error) {
	return m.stats, m.err
}

type mockExporter struct {
	rec     models.ExportRecord
	err     error
	lastWin models.Window
	calls   int
}

func (m *mockExporter) Export(ctx context.Context, w models.Window) (models.ExportRecord, error) {
	m.calls++
	m.lastWin = w
	return m.rec, m.err
}

type mockStatus struct {
	status models.SystemStatus
	err    error
}

func (m *mockStatus) SystemStatus(ctx context.Context) (models.SystemStatus, error) {
	return m.status, m.err
}

type mockJournal struct {
	resp     []models.Sample
	err      error
	lastRange models.Window
	calls    int
}

func (m *mockJournal) List(ctx context.Context, f service.SampleFilter) ([]models.Sample, error) {
	m.calls++
	m.lastRange = models.Window{Start: f.From, End: f.To}
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, prometheus.NewRegistry())
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
