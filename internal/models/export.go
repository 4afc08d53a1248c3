package models

import "time"

// ExportRecord is one completed CSV export.
type ExportRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Start     time.Time `json:"start,omitempty"`
	End       time.Time `json:"end,omitempty"`
	Path      string    `json:"path"`
	Bytes     int       `json:"bytes"`
}

// LogStats summarizes the trailing history window.
type LogStats struct {
	TotalRecords int        `json:"total_records"`
	AvgVoltage   float64    `json:"avg_voltage"`
	AvgBattery   float64    `json:"avg_battery"`
	LastExport   *time.Time `json:"last_export,omitempty"`
	Demo         bool       `json:"demo"`
}
