package models

import (
	"errors"
	"time"
)

// Sample is one battery telemetry reading as delivered by the backend.
type Sample struct {
	ID         string  `json:"id"`
	Voltage    float64 `json:"voltage"`    // volts
	Percentage float64 `json:"percentage"` // 0..100
	Timestamp  int64   `json:"timestamp"`  // epoch millis
	DateTime   string  `json:"dateTime"`   // ISO-8601
}

var (
	errSampleNoID      = errors.New("sample: empty id")
	errSampleBadLevel  = errors.New("sample: percentage outside [0,100]")
	errSampleNoCapture = errors.New("sample: missing timestamp")
)

// CapturedAt returns the capture time in UTC.
func (s Sample) CapturedAt() time.Time {
	return time.UnixMilli(s.Timestamp).UTC()
}

// Validate reports whether the sample can be shown to the dashboard.
func (s Sample) Validate() error {
	if s.ID == "" {
		return errSampleNoID
	}
	if s.Percentage < 0 || s.Percentage > 100 {
		return errSampleBadLevel
	}
	if s.Timestamp <= 0 {
		return errSampleNoCapture
	}
	return nil
}

// NewSample builds a sample stamped with t.
func NewSample(id string, voltage, percentage float64, t time.Time) Sample {
	t = t.UTC()
	return Sample{
		ID:         id,
		Voltage:    voltage,
		Percentage: percentage,
		Timestamp:  t.UnixMilli(),
		DateTime:   t.Format(time.RFC3339Nano),
	}
}

// Window bounds a historical query. Zero fields mean "use the default".
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}
