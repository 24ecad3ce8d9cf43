package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// The provider redirect URI is fixed per registration, so the post-login
// destination rides in a cookie across the round trip instead.
const (
	returnURLCookieName = "__oauth_return"
	returnURLTTL        = 15 * time.Minute
)

func setReturnURLCookie(c *gin.Context, returnURL string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     returnURLCookieName,
		Value:    returnURL,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(returnURLTTL.Seconds()),
	})
}

func returnURLFromRequest(c *gin.Context) string {
	cookie, err := c.Request.Cookie(returnURLCookieName)
	if err != nil {
		return "/"
	}
	return safeReturnURL(cookie.Value)
}

// safeReturnURL only admits local paths, never absolute or
// protocol-relative URLs, so the flow cannot be used as an open redirect.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}
