package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Providers": h.providers.Names(),
		"Message":   takeFlash(c),
		"ReturnURL": safeReturnURL(c.Query("return_url")),
	})
}

func (h *Handler) lockoutPage(c *gin.Context) {
	c.HTML(http.StatusOK, "lockout.html", nil)
}

func (h *Handler) registerConfirmationPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register_confirmation.html", gin.H{
		"Email": c.Query("Email"),
	})
}
