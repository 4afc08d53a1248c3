package service

import (
	"fmt"
	"time"

	"battery_monitor/internal/models"
)

// Safe operating range of a 12 V lead-acid pack.
const (
	MinSafeVoltage = 10.5
	MaxSafeVoltage = 12.6
)

const (
	StatusHealthy     = "System Healthy"
	StatusLowVoltage  = "Low Voltage"
	StatusHighVoltage = "High Voltage"
)

// Battery level bands.
const (
	BandNominal  = "nominal"
	BandWarning  = "warning"
	BandCritical = "critical"
)

func VoltageHealthy(v float64) bool {
	return v >= MinSafeVoltage && v <= MaxSafeVoltage
}

func VoltageStatus(v float64) string {
	switch {
	case VoltageHealthy(v):
		return StatusHealthy
	case v < MinSafeVoltage:
		return StatusLowVoltage
	default:
		return StatusHighVoltage
	}
}

// VoltageProgress maps v onto the safe range as a percentage in [0,100].
func VoltageProgress(v float64) float64 {
	p := (v - MinSafeVoltage) / (MaxSafeVoltage - MinSafeVoltage) * 100
	return min(100, max(0, p))
}

func BatteryBand(percentage float64) string {
	switch {
	case percentage >= 60:
		return BandNominal
	case percentage >= 30:
		return BandWarning
	default:
		return BandCritical
	}
}

// FormatTimeAgo renders the "last export" label of the log screen.
func FormatTimeAgo(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "Never"
	}
	secs := int64(now.Sub(*t) / time.Second)
	switch {
	case secs < 60:
		return fmt.Sprintf("%d seconds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%d minutes ago", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%d hours ago", secs/3600)
	default:
		return fmt.Sprintf("%d days ago", secs/86400)
	}
}

// Readout holds the values derived from the current sample.
type Readout struct {
	Healthy  bool    `json:"healthy"`
	Status   string  `json:"status"`
	Progress float64 `json:"voltage_progress"`
	Band     string  `json:"battery_band"`
}

// Dashboard is a sync snapshot plus its derived readout. Readout is nil
// while no current sample is known.
type Dashboard struct {
	models.SyncState
	Readout *Readout `json:"readout,omitempty"`
}

// Derive computes the presentation values for st. It never mutates st.
func Derive(st models.SyncState) Dashboard {
	d := Dashboard{SyncState: st}
	if st.Current != nil {
		v := st.Current.Voltage
		d.Readout = &Readout{
			Healthy:  VoltageHealthy(v),
			Status:   VoltageStatus(v),
			Progress: VoltageProgress(v),
			Band:     BatteryBand(st.Current.Percentage),
		}
	}
	return d
}
