package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Realtime channel
// @Description  Websocket upgrade. Present ?token=<jwt> (or a Bearer header), or ?isGuest=true&userId=..&username=..
// @Tags         realtime
// @Success      101
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	if h.realtime == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errRealtimeOff})
		return
	}
	h.realtime.ServeHTTP(c.Writer, c.Request)
}
