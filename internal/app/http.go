package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Promise30/promise-auth/internal/audit"
	"github.com/Promise30/promise-auth/internal/auth/credentials"
	"github.com/Promise30/promise-auth/internal/auth/handler"
	"github.com/Promise30/promise-auth/internal/auth/pending"
	"github.com/Promise30/promise-auth/internal/auth/provider"
	"github.com/Promise30/promise-auth/internal/auth/provider/github"
	"github.com/Promise30/promise-auth/internal/auth/provider/google"
	"github.com/Promise30/promise-auth/internal/auth/provider/keycloak"
	"github.com/Promise30/promise-auth/internal/auth/reconciler"
	"github.com/Promise30/promise-auth/internal/config"
	"github.com/Promise30/promise-auth/internal/mail"
	"github.com/Promise30/promise-auth/internal/middleware"
	"github.com/Promise30/promise-auth/internal/session"
	"github.com/Promise30/promise-auth/internal/signin"
	"github.com/Promise30/promise-auth/internal/users"

	"github.com/gin-gonic/gin"
)

func setupHTTP(ctx context.Context, cfg config.Config, log *slog.Logger) (*gin.Engine, *mail.Queue, chan struct{}, func() error, error) {

	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	pendingStore := pending.NewStore(infra.Redis.Client)
	auditStore := audit.NewPostgresStore(infra.DB)

	userStore, err := users.RequireEmailStore(users.NewPostgresStore(infra.DB))
	if err != nil {
		return nil, nil, nil, nil, err
	}

	signInManager := signin.NewManager(userStore, sessionStore, cfg.SessionTTL, log)

	tokens := mail.NewConfirmationTokens(cfg.TokenSecret, cfg.ConfirmationTokenTTL)

	mailQueue := mail.NewQueue(cfg.MailQueueSize)
	var sender mail.EmailSender
	if cfg.PostmarkServerToken != "" {
		sender, err = mail.NewPostmarkSender(
			cfg.PostmarkServerToken,
			cfg.PostmarkAccountToken,
			cfg.SenderEmail,
			cfg.SupportEmail,
		)
		if err != nil {
			return nil, nil, nil, nil, err
		}
	} else {
		log.Warn("no postmark token configured, using dev mail sender")
		sender = mail.NewDevSender(log)
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		mail.NewWorker(mailQueue, sender, log).Run(context.WithoutCancel(ctx))
	}()

	reconcilerService := reconciler.New(reconciler.Config{
		Store:                   userStore,
		SignIn:                  signInManager,
		Tokens:                  tokens,
		Mail:                    mailQueue,
		BaseURL:                 cfg.BaseURL,
		RequireConfirmedAccount: cfg.RequireConfirmedAccount,
		Log:                     log,
	})

	credentialService := credentials.NewService(credentials.Config{
		DB:               infra.DB,
		Users:            userStore,
		LockoutThreshold: cfg.LockoutThreshold,
		LockoutWindow:    cfg.LockoutWindow,
	})

	registry, err := buildProviderRegistry(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	authHandler := handler.NewHandler(handler.Deps{
		Providers:               registry,
		Reconciler:              reconcilerService,
		Pending:                 pendingStore,
		Credentials:             credentialService,
		SignIn:                  signInManager,
		SessionStore:            sessionStore,
		Users:                   userStore,
		Tokens:                  tokens,
		RequireConfirmedAccount: cfg.RequireConfirmedAccount,
		Log:                     log,
	})

	authMiddleware := middleware.NewAuthMiddleware(sessionStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()

	// Outermost: every panic and attached error funnels through here.
	router.Use(middleware.ErrorLogging(log, auditStore, "/login"))

	router.LoadHTMLGlob("web/templates/*.html")

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		userID, ok := middleware.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})

	cleanup := func() error {
		redisErr := infra.Redis.Close()
		dbErr := infra.DB.Close()
		return errors.Join(redisErr, dbErr)
	}

	return router, mailQueue, workerDone, cleanup, nil
}

// buildProviderRegistry wires every provider with configured credentials.
// At least one is required: the service is an external-login service first.
func buildProviderRegistry(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var providers []provider.OAuthProvider

	if cfg.GoogleClientID != "" {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.GitHubClientID != "" {
		p, err := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if cfg.KeycloakIssuer != "" {
		p, err := keycloak.New(ctx, cfg.KeycloakIssuer, cfg.KeycloakClientID, cfg.KeycloakRedirectURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	if len(providers) == 0 {
		return nil, errors.New("no external login provider configured")
	}

	return provider.NewRegistry(providers...), nil
}
