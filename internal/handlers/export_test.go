package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"battery_monitor/internal/models"
	"battery_monitor/internal/service"
)

func post(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
	return w
}

func TestExportHandler_Created(t *testing.T) {
	exp := &mockExporter{rec: models.ExportRecord{ID: "e1", Path: "exports/e1.csv", Bytes: 10}}
	r := newTestRouter(&service.Service{Exporter: exp})

	w := post(r, "/api/v1/export?startDate=2025-08-01&endDate=2025-08-31")
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var rec models.ExportRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil || rec.ID != "e1" {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}
	wantEnd := time.Date(2025, 8, 31, 23, 59, 59, 999999999, time.UTC)
	if !exp.lastWin.Start.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) || !exp.lastWin.End.Equal(wantEnd) {
		t.Fatalf("unexpected window %+v", exp.lastWin)
	}
}

func TestExportHandler_Failures(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantCode   int
		wantNotice string
	}{
		{
			name:     "bad date",
			path:     "/api/v1/export?startDate=yesterday",
			wantCode: http.StatusBadRequest,
		},
		{
			name:       "backend down surfaces notice",
			path:       "/api/v1/export",
			err:        &service.ExportError{Notice: service.NoticeBackendDown, Err: errors.New("refused")},
			wantCode:   http.StatusBadGateway,
			wantNotice: service.NoticeBackendDown,
		},
		{
			name:     "invalid range from service",
			path:     "/api/v1/export",
			err:      service.ErrInvalidTimeRange,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unexpected error",
			path:     "/api/v1/export",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Exporter: &mockExporter{err: tt.err}})
			w := post(r, tt.path)
			if w.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d (body=%s)", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantNotice != "" {
				var out map[string]string
				_ = json.Unmarshal(w.Body.Bytes(), &out)
				if out["notice"] != tt.wantNotice {
					t.Fatalf("notice = %q, want %q", out["notice"], tt.wantNotice)
				}
			}
		})
	}
}
