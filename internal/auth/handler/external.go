package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Promise30/promise-auth/internal/auth/pending"
	"github.com/Promise30/promise-auth/internal/auth/reconciler"
	"github.com/Promise30/promise-auth/internal/logger"
	"github.com/Promise30/promise-auth/internal/signin"

	"github.com/gin-gonic/gin"
)

const loadExternalInfoMessage = "Error loading external login information."

// challenge starts the provider round trip: remember where to return to,
// stash state and PKCE in cookies, then redirect to the provider.
func (h *Handler) challenge(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	setReturnURLCookie(c, safeReturnURL(c.Query("return_url")))

	state := generateState(c)
	_, codeChallenge := generatePKCE(c)

	authURL := p.AuthCodeURL(state, codeChallenge)
	c.Redirect(http.StatusFound, authURL)
}

// callback receives the provider redirect and runs the sign-in attempt.
// Provider-reported errors and tampered round trips both land back on the
// login page with a message; only the token exchange itself escalates to
// the error middleware, since its failures are indistinguishable from bugs
// in provider configuration.
func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if remoteErr := c.Query("error"); remoteErr != "" {
		h.log.Warn("external provider returned error",
			logger.Provider(providerName),
			slog.String("error", remoteErr),
			slog.String("description", c.Query("error_description")),
		)
		h.redirectToLogin(c, "Error from external provider: "+remoteErr)
		return
	}

	code := c.Query("code")
	if !validateState(c) || code == "" {
		h.redirectToLogin(c, loadExternalInfoMessage)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		h.redirectToLogin(c, loadExternalInfoMessage)
		return
	}

	identity, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		c.Error(&signin.AuthError{Reason: "token exchange failed", Err: err})
		c.Abort()
		return
	}

	// The identity must survive until the confirmation form posts back,
	// which may be minutes later on a different request.
	pendingID, err := h.pending.Save(c.Request.Context(), identity)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	pending.SetCookie(c.Writer, pendingID)

	returnURL := returnURLFromRequest(c)

	outcome, err := h.reconciler.AttemptSignIn(c.Request.Context(), c.Writer, identity, returnURL)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	if outcome.State != reconciler.StateCollectEmail {
		h.clearPending(c, pendingID)
	}
	h.renderOutcome(c, outcome)
}

type confirmRequest struct {
	Email string `form:"email" binding:"required,email"`
}

// confirmExternal handles the email-collection form submit.
func (h *Handler) confirmExternal(c *gin.Context) {
	pendingID := pending.FromRequest(c.Request)
	if pendingID == "" {
		h.redirectToLogin(c, "Error loading external login information during confirmation.")
		return
	}

	identity, err := h.pending.Load(c.Request.Context(), pendingID)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	if identity == nil {
		// Cookie missing, expired, or replayed after completion.
		h.redirectToLogin(c, "Error loading external login information during confirmation.")
		return
	}

	returnURL := returnURLFromRequest(c)

	var req confirmRequest
	if err := c.ShouldBind(&req); err != nil {
		c.HTML(http.StatusOK, "external_confirm.html", gin.H{
			"Provider": identity.DisplayName,
			"Email":    c.PostForm("email"),
			"Errors":   []string{"A valid email address is required."},
		})
		return
	}

	outcome, err := h.reconciler.ConfirmAndCreate(c.Request.Context(), c.Writer, identity, req.Email, returnURL)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	if outcome.State != reconciler.StateCollectEmail {
		h.clearPending(c, pendingID)
	}
	h.renderOutcome(c, outcome)
}

func (h *Handler) renderOutcome(c *gin.Context, outcome reconciler.Outcome) {
	switch outcome.State {
	case reconciler.StateSignedIn:
		c.Redirect(http.StatusFound, safeReturnURL(outcome.RedirectURL))

	case reconciler.StateLockedOut:
		c.Redirect(http.StatusFound, "/lockout")

	case reconciler.StatePendingConfirmation:
		c.Redirect(http.StatusFound, "/register/confirmation?Email="+url.QueryEscape(outcome.Email))

	case reconciler.StateCollectEmail:
		c.HTML(http.StatusOK, "external_confirm.html", gin.H{
			"Provider": outcome.Provider,
			"Email":    outcome.Email,
			"Errors":   outcome.Errors,
		})
	}
}

func (h *Handler) redirectToLogin(c *gin.Context, message string) {
	setFlash(c, message)
	c.Redirect(http.StatusFound, "/login")
}

// clearPending removes both the store entry and the cookie once the flow
// reaches a terminal state. Best effort: a leftover entry just expires.
func (h *Handler) clearPending(c *gin.Context, pendingID string) {
	if pendingID != "" {
		if err := h.pending.Delete(context.WithoutCancel(c.Request.Context()), pendingID); err != nil {
			h.log.Warn("pending login entry not deleted", logger.Error(err))
		}
	}
	pending.ClearCookie(c.Writer)
}
