package handler

import (
	"net/http"

	"github.com/Promise30/promise-auth/internal/logger"
	"github.com/Promise30/promise-auth/internal/session"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Logout(c *gin.Context) {

	// 1. Read session cookie (same pattern as auth middleware)
	cookie, err := c.Request.Cookie(session.CookieName)
	if err == nil && cookie.Value != "" {
		// 2. Delete session from store (best-effort)
		if err := h.sessionStore.Delete(c.Request.Context(), cookie.Value); err != nil {
			h.log.Warn("session not deleted on logout", logger.Error(err))
		}
	}

	// 3. Clear cookie (must pass options)
	session.ClearCookie(c.Writer, session.CookieOptions{
		Path:     "/",
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// 4. Idempotent response
	c.Status(http.StatusNoContent)
}
