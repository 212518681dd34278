package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxUserID is the gin context key holding the authenticated user's id.
const ctxUserID = "userId"

const (
	errAuthMissing = "missing Authorization header"
	errAuthFormat  = "invalid Authorization header format"
	errAuthToken   = "invalid or expired token"
)

// bearerToken returns the token of an "Authorization: Bearer <token>"
// header, or the message to reject the request with.
func bearerToken(header string) (token, rejection string) {
	if header == "" {
		return "", errAuthMissing
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		return "", errAuthFormat
	}
	return strings.TrimSpace(token), ""
}

// requireUser only lets registered users with a valid session token through.
// Guests have no token and cannot use the REST history endpoint.
func (h *Handler) requireUser(c *gin.Context) {
	token, rejection := bearerToken(c.GetHeader("Authorization"))
	if rejection != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": rejection})
		return
	}

	userID, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Debugw("auth_token_rejected", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errAuthToken})
		return
	}

	c.Set(ctxUserID, userID)
	c.Next()
}

// currentUserID is the id stored by requireUser, empty on public routes.
func currentUserID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
