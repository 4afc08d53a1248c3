package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"battery_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"

	errTimeInvalid = "invalid '%s' time; use RFC3339 or YYYY-MM-DD"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// parseRange reads an optional [from, to] pair. A date-only upper bound
// covers the whole day.
func parseRange(c *gin.Context, fromKey, toKey string) (from, to time.Time, msg string) {
	var err error
	if qs := c.Query(fromKey); qs != "" {
		if from, err = parseQueryTime(qs); err != nil {
			return time.Time{}, time.Time{}, fmt.Sprintf(errTimeInvalid, fromKey)
		}
	}
	if qs := c.Query(toKey); qs != "" {
		if to, err = parseQueryTime(qs); err != nil {
			return time.Time{}, time.Time{}, fmt.Sprintf(errTimeInvalid, toKey)
		}
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, fmt.Sprintf("'%s' must be <= '%s'", fromKey, toKey)
	}
	return from, to, ""
}

// @Summary      Journaled samples
// @Description  Live samples stored locally, filtered by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' is end-of-day inclusive.
// @Tags         log
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2025-08-01)
// @Param        to    query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Success      200   {object}  map[string]interface{}  "count, samples"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/samples [get]
func (h *Handler) getSamples(c *gin.Context) {
	from, to, msg := parseRange(c, "from", "to")
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	samples, err := h.services.Journal.List(c.Request.Context(), service.SampleFilter{From: from, To: to})
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load samples", "samples_list_failed", err, "from", from, "to", to)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(samples),
		"samples": samples,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	// Try multiple accepted formats, normalizing to UTC.
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
