package service

import (
	"reflect"
	"testing"
	"time"
)

func TestDemoHistory_DeterministicHourly(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a, b := DemoHistory(now), DemoHistory(now)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("demo history not deterministic")
	}
	if len(a) != 10 {
		t.Fatalf("len = %d, want 10", len(a))
	}
	for i := 1; i < len(a); i++ {
		if d := a[i].Timestamp - a[i-1].Timestamp; d != time.Hour.Milliseconds() {
			t.Fatalf("gap %d at %d, want 1h", d, i)
		}
		if !IsDemo(a[i]) {
			t.Fatalf("sample %s not tagged as demo", a[i].ID)
		}
	}
	if a[9].Timestamp != now.UnixMilli() || a[9].ID != "demo-0" || a[0].ID != "demo-9" {
		t.Fatalf("unexpected tail/head: %+v / %+v", a[0], a[9])
	}
	for _, s := range a {
		if err := s.Validate(); err != nil {
			t.Fatalf("invalid demo sample %s: %v", s.ID, err)
		}
	}
}

func TestDemoLatest(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000)
	s := DemoLatest(now)
	if s.Voltage != 11.84 || s.Percentage != 78 || s.Timestamp != now.UnixMilli() || !IsDemo(s) {
		t.Fatalf("unexpected demo latest: %+v", s)
	}
}

func TestDemoStats(t *testing.T) {
	t.Parallel()

	st := DemoStats()
	if st.TotalRecords != 720 || st.AvgVoltage != 11.7 || st.AvgBattery != 76.5 || !st.Demo || st.LastExport != nil {
		t.Fatalf("unexpected demo stats: %+v", st)
	}
}
