package handler

import (
	"net/http"
	"strings"

	"github.com/Promise30/promise-auth/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// confirmEmail handles the link from the confirmation message. The token is
// self-contained; user_id in the query must match the token subject so a
// link cannot be spliced onto another account.
func (h *Handler) confirmEmail(c *gin.Context) {
	renderError := func() {
		c.HTML(http.StatusBadRequest, "confirm_email.html", gin.H{
			"Confirmed": false,
		})
	}

	rawUserID := c.Query("user_id")
	code := c.Query("code")
	if rawUserID == "" || code == "" {
		renderError()
		return
	}

	queryUserID, err := uuid.Parse(rawUserID)
	if err != nil {
		renderError()
		return
	}

	tokenUserID, tokenEmail, err := h.tokens.ParseConfirmation(code)
	if err != nil || tokenUserID != queryUserID {
		renderError()
		return
	}

	u, err := h.users.FindByID(c.Request.Context(), tokenUserID)
	if err != nil {
		renderError()
		return
	}

	// A token issued before the address changed must not confirm the
	// new one.
	if !strings.EqualFold(u.Email, tokenEmail) {
		renderError()
		return
	}

	if err := h.users.ConfirmEmail(c.Request.Context(), u.ID); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	h.log.Info("email confirmed", logger.UserID(u.ID))

	c.HTML(http.StatusOK, "confirm_email.html", gin.H{
		"Confirmed": true,
	})
}
