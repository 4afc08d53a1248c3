package service

import (
	"strconv"
	"strings"
	"time"

	"battery_monitor/internal/models"
)

// ----------- Demo data -----------
// Shown when the backend cannot be reached. Values are fixed so the
// fallback view is reproducible; only timestamps follow the clock.
const (
	DemoIDPrefix      = "demo-"
	DemoLatestVoltage = 11.84
	DemoLatestPercent = 78.0
	DemoPointSpacing  = time.Hour

	// Stats for the log screen (30 days * 24 hours of hourly samples).
	DemoTotalRecords = 720
	DemoAvgVoltage   = 11.7
	DemoAvgBattery   = 76.5
)

// demoPoints is the hourly trend, oldest first.
var demoPoints = [...]struct{ voltage, percentage float64 }{
	{11.52, 75.4},
	{11.61, 76.9},
	{11.58, 76.2},
	{11.73, 78.8},
	{11.80, 80.1},
	{11.95, 84.3},
	{11.88, 82.6},
	{11.69, 79.0},
	{11.77, 80.7},
	{11.84, 78.0},
}

// DemoLatest returns the synthetic "current" sample stamped at now.
func DemoLatest(now time.Time) models.Sample {
	return models.NewSample(DemoIDPrefix+"latest", DemoLatestVoltage, DemoLatestPercent, now)
}

// DemoHistory returns the synthetic hourly trend ending at now.
func DemoHistory(now time.Time) []models.Sample {
	out := make([]models.Sample, 0, len(demoPoints))
	last := len(demoPoints) - 1
	for i, p := range demoPoints {
		at := now.Add(-time.Duration(last-i) * DemoPointSpacing)
		out = append(out, models.NewSample(DemoIDPrefix+strconv.Itoa(last-i), p.voltage, p.percentage, at))
	}
	return out
}

// DemoStats is what the log screen shows when the backend is offline.
func DemoStats() models.LogStats {
	return models.LogStats{
		TotalRecords: DemoTotalRecords,
		AvgVoltage:   DemoAvgVoltage,
		AvgBattery:   DemoAvgBattery,
		Demo:         true,
	}
}

// IsDemo reports whether s was produced by the demo generator.
func IsDemo(s models.Sample) bool {
	return strings.HasPrefix(s.ID, DemoIDPrefix)
}
