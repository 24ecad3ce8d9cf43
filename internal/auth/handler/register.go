package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/Promise30/promise-auth/internal/auth/credentials"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	u, err := h.credentials.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrAlreadyRegistered):
			c.JSON(http.StatusConflict, gin.H{"error": "account already exists"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	// Same queued confirmation as the external flow.
	if !u.EmailConfirmed {
		h.reconciler.DispatchConfirmation(c.Request.Context(), u)
	}

	if h.requireConfirmed && !u.EmailConfirmed {
		c.Redirect(http.StatusFound, "/register/confirmation?Email="+url.QueryEscape(u.Email))
		return
	}

	if err := h.signIn.SignInUser(c.Request.Context(), c.Writer, u, ""); err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}
