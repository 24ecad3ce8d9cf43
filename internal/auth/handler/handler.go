package handler

import (
	"log/slog"

	"github.com/Promise30/promise-auth/internal/auth/credentials"
	"github.com/Promise30/promise-auth/internal/auth/pending"
	"github.com/Promise30/promise-auth/internal/auth/provider"
	"github.com/Promise30/promise-auth/internal/auth/reconciler"
	"github.com/Promise30/promise-auth/internal/mail"
	"github.com/Promise30/promise-auth/internal/session"
	"github.com/Promise30/promise-auth/internal/signin"
	"github.com/Promise30/promise-auth/internal/users"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	providers    *provider.Registry
	reconciler   *reconciler.Service
	pending      *pending.Store
	credentials  *credentials.Service
	signIn       *signin.Manager
	sessionStore session.Store
	users        users.EmailStore
	tokens       *mail.ConfirmationTokens

	requireConfirmed bool
	log              *slog.Logger
}

type Deps struct {
	Providers    *provider.Registry
	Reconciler   *reconciler.Service
	Pending      *pending.Store
	Credentials  *credentials.Service
	SignIn       *signin.Manager
	SessionStore session.Store
	Users        users.EmailStore
	Tokens       *mail.ConfirmationTokens

	RequireConfirmedAccount bool
	Log                     *slog.Logger
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		providers:        deps.Providers,
		reconciler:       deps.Reconciler,
		pending:          deps.Pending,
		credentials:      deps.Credentials,
		signIn:           deps.SignIn,
		sessionStore:     deps.SessionStore,
		users:            deps.Users,
		tokens:           deps.Tokens,
		requireConfirmed: deps.RequireConfirmedAccount,
		log:              deps.Log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/oauth/login/:provider", h.challenge)
	r.GET("/oauth/callback/:provider", h.callback)
	r.POST("/oauth/confirm", h.confirmExternal)

	r.GET("/confirm-email", h.confirmEmail)

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)

	r.GET("/login", h.loginPage)
	r.GET("/lockout", h.lockoutPage)
	r.GET("/register/confirmation", h.registerConfirmationPage)

	for _, route := range r.Routes() {
		h.log.Debug("route registered",
			slog.String("method", route.Method),
			slog.String("path", route.Path),
		)
	}
}
