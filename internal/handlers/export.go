package handlers

import (
	"errors"
	"net/http"

	"battery_monitor/internal/models"
	"battery_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// @Summary      Export CSV
// @Description  Downloads the backend CSV for the range and stores it locally. Failures carry a user-facing notice.
// @Tags         log
// @Produce      json
// @Param        startDate  query  string  false  "Start of range"  example(2025-08-01)
// @Param        endDate    query  string  false  "End of range"  example(2025-08-31)
// @Success      201  {object}  models.ExportRecord
// @Failure      400  {object}  map[string]string
// @Failure      502  {object}  map[string]string  "error, notice"
// @Router       /api/v1/export [post]
func (h *Handler) postExport(c *gin.Context) {
	start, end, msg := parseRange(c, "startDate", "endDate")
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	rec, err := h.services.Exporter.Export(c.Request.Context(), models.Window{Start: start, End: end})
	if err != nil {
		var ee *service.ExportError
		switch {
		case errors.Is(err, service.ErrInvalidTimeRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.As(err, &ee):
			if h.log != nil {
				h.log.Warnw("export_failed", "err", err)
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "export unavailable", "notice": ee.Notice})
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, "export failed", "export_failed", err)
		}
		return
	}
	c.JSON(http.StatusCreated, rec)
}
