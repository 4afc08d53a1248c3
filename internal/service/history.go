package service

import (
	"sort"

	"battery_monitor/internal/models"
)

// DefaultHistorySize is how many samples the dashboard chart keeps.
const DefaultHistorySize = 30

// HistoryBuffer is a bounded FIFO of samples ordered by arrival.
// It is not safe for concurrent use; the sync controller owns it.
type HistoryBuffer struct {
	size  int
	items []models.Sample
}

func NewHistoryBuffer(size int) *HistoryBuffer {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &HistoryBuffer{size: size, items: make([]models.Sample, 0, size)}
}

// Push appends s, evicting the oldest entry when the buffer is full.
func (b *HistoryBuffer) Push(s models.Sample) {
	if len(b.items) == b.size {
		copy(b.items, b.items[1:])
		b.items = b.items[:b.size-1]
	}
	b.items = append(b.items, s)
}

// Replace loads a historical window: sorted by capture time (stable) and
// trimmed to the most recent entries that fit.
func (b *HistoryBuffer) Replace(samples []models.Sample) {
	sorted := append([]models.Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	if len(sorted) > b.size {
		sorted = sorted[len(sorted)-b.size:]
	}
	b.items = append(b.items[:0], sorted...)
}

// Samples returns a copy of the buffer, oldest first.
func (b *HistoryBuffer) Samples() []models.Sample {
	return append(make([]models.Sample, 0, len(b.items)), b.items...)
}

func (b *HistoryBuffer) Len() int { return len(b.items) }

func (b *HistoryBuffer) Cap() int { return b.size }
