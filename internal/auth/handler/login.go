package handler

import (
	"errors"
	"net/http"

	"github.com/Promise30/promise-auth/internal/auth/credentials"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.credentials.Authenticate(c.Request.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, credentials.ErrLockedOut):
		c.Redirect(http.StatusFound, "/lockout")
		return
	case err != nil:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	if h.requireConfirmed && !u.EmailConfirmed {
		c.JSON(http.StatusForbidden, gin.H{"error": "email address not confirmed"})
		return
	}

	if err := h.signIn.SignInUser(c.Request.Context(), c.Writer, u, ""); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged_in"})
}
