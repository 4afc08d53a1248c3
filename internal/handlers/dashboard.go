package handlers

import (
	"net/http"
	"time"

	"battery_monitor/internal/models"
	"battery_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errLoadStats     = "failed to load statistics"
	errBackendStatus = "backend status unavailable"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
		"mode":   h.services.Sync.Snapshot().Mode,
	})
}

// @Summary      Dashboard state
// @Description  Current sample, rolling history, connection mode and derived voltage/battery readout.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  service.Dashboard
// @Router       /api/v1/state [get]
func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, service.Derive(h.services.Sync.Snapshot()))
}

// @Summary      Rolling history
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, samples"
// @Router       /api/v1/history [get]
func (h *Handler) getHistory(c *gin.Context) {
	samples := h.services.Sync.History()
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}

// statsResponse adds the human-readable export label to LogStats.
type statsResponse struct {
	models.LogStats
	LastExportAgo string `json:"last_export_ago"`
}

// @Summary      Log statistics
// @Description  Averages over the trailing 30 days. Demo figures are returned when the backend is offline.
// @Tags         log
// @Produce      json
// @Success      200  {object}  statsResponse
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/stats [get]
func (h *Handler) getStats(c *gin.Context) {
	st, err := h.services.Statistics.Summary(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadStats, "stats_failed", err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{
		LogStats:      st,
		LastExportAgo: service.FormatTimeAgo(st.LastExport, time.Now()),
	})
}

// @Summary      Backend system status
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.SystemStatus
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/status [get]
func (h *Handler) getStatus(c *gin.Context) {
	st, err := h.services.StatusReporter.SystemStatus(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errBackendStatus, "status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}
