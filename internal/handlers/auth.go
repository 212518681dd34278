package handlers

import (
	"errors"
	"io"
	"net/http"

	"realtime_chat/internal/metrics"
	"realtime_chat/internal/service"

	"github.com/gin-gonic/gin"
)

// Single, shared credentials payload for both sign-up and sign-in.
type authCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type guestRequest struct {
	Username string `json:"username"`
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a 400 JSON on failure.
// Returns false if the request was already handled (aborted), true otherwise.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("auth_bad_request_body", "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authCredentials  true  "Credentials"
// @Success      201   {object}  service.Session
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/signup [post]
func (h *Handler) signUp(c *gin.Context) {
	var input authCredentials
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	session, err := h.services.SignUp(c.Request.Context(), input.Username, input.Password)
	switch {
	case err == nil:
		metrics.SignUps.WithLabelValues("ok").Inc()
		c.JSON(http.StatusCreated, session)
	case errors.Is(err, service.ErrDuplicateUsername):
		metrics.SignUps.WithLabelValues("duplicate").Inc()
		if h.log != nil {
			h.log.Infow("auth_sign_up_duplicate", "username", input.Username)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errUsernameTaken})
	case errors.Is(err, service.ErrEmptyPassword):
		metrics.SignUps.WithLabelValues("invalid").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": errPasswordMissing})
	default:
		metrics.SignUps.WithLabelValues("error").Inc()
		h.logAndJSONError(c, http.StatusInternalServerError, errSignUp, "auth_sign_up_failed", err, "username", input.Username)
	}
}

// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      authCredentials  true  "Credentials"
// @Success      200   {object}  service.Session
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/login [post]
func (h *Handler) signIn(c *gin.Context) {
	var input authCredentials
	if ok := h.bindJSONOrBadRequest(c, &input); !ok {
		return
	}

	session, err := h.services.Login(c.Request.Context(), input.Username, input.Password)
	switch {
	case err == nil:
		metrics.Logins.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, session)
	case errors.Is(err, service.ErrInvalidCredentials):
		metrics.Logins.WithLabelValues("invalid").Inc()
		if h.log != nil {
			h.log.Infow("auth_sign_in_failed", "username", input.Username)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": errBadCredentials})
	default:
		metrics.Logins.WithLabelValues("error").Inc()
		h.logAndJSONError(c, http.StatusInternalServerError, errLogin, "auth_sign_in_error", err, "username", input.Username)
	}
}

// @Summary      Continue as guest
// @Description  Mints a server-side guest identity. The optional username becomes the display name.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Success      201   {object}  models.Identity
// @Failure      500   {object}  map[string]string
// @Router       /api/guest [post]
func (h *Handler) continueAsGuest(c *gin.Context) {
	// the body is optional; an empty one, chunked or not, decodes as io.EOF
	var input guestRequest
	if c.Request.Body != nil {
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
			if h.log != nil {
				h.log.Infow("auth_bad_request_body", "err", err)
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	guest, err := h.services.Mint(c.Request.Context(), input.Username)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGuest, "auth_guest_failed", err)
		return
	}
	c.JSON(http.StatusCreated, guest)
}
