package handlers

import "github.com/gin-gonic/gin"

// User-facing error messages.
const (
	errUsernameTaken   = "Username already exists"
	errPasswordMissing = "Password is required"
	errSignUp          = "Error signing up"
	errBadCredentials  = "Invalid credentials"
	errLogin           = "Error logging in"
	errGuest           = "Error creating guest"
	errHistory         = "failed to load messages"
	errRealtimeOff     = "realtime channel unavailable"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}
