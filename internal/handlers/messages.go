package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"realtime_chat/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errBeforeInvalid = "invalid 'before' time; use RFC3339, 'YYYY-MM-DD HH:MM:SS' or YYYY-MM-DD"
	errLimitInvalid  = "invalid 'limit'; must be between 1 and 50"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// @Summary      Message history
// @Description  Pages backwards through the conversation. Results are oldest first.
// @Tags         messages
// @Produce      json
// @Param        before  query   string  false  "Only messages strictly older than this (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')"
// @Param        limit   query   int     false  "Page size, 1..50 (default 50)"
// @Success      200   {object}  map[string]interface{}  "count, messages"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/messages [get]
// @Security     BearerAuth
func (h *Handler) getMessages(c *gin.Context) {
	var (
		before time.Time
		limit  = service.HistorySize
		err    error
	)
	if qs := c.Query("before"); qs != "" {
		before, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errBeforeInvalid})
			return
		}
	}
	if qs := c.Query("limit"); qs != "" {
		limit, err = strconv.Atoi(qs)
		if err != nil || limit < 1 || limit > service.HistorySize {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
	}

	messages, err := h.services.History(c.Request.Context(), before, limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errHistory, "messages_list_failed", err,
			"user_id", currentUserID(c), "before", before, "limit", limit)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(messages),
		"messages": messages,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	// Try multiple accepted formats, normalizing to UTC.
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format %q", s)
}
