package reconciler

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	netmail "net/mail"
	"net/url"

	"github.com/Promise30/promise-auth/internal/auth"
	"github.com/Promise30/promise-auth/internal/logger"
	"github.com/Promise30/promise-auth/internal/mail"
	"github.com/Promise30/promise-auth/internal/signin"
	"github.com/Promise30/promise-auth/internal/users"

	"github.com/google/uuid"
)

const (
	confirmationSubject = "Confirm your email"

	invalidEmailMessage = "Please enter a valid email address."
	genericSaveMessage  = "The account could not be saved. Please try again."
)

// SignInManager is the sign-in collaborator. It owns sessions and lockout
// interpretation; the reconciler only consumes its result variants.
type SignInManager interface {
	ExternalLoginSignIn(ctx context.Context, w http.ResponseWriter, provider, providerKey string) (signin.ExternalSignInResult, *users.User, error)
	SignInUser(ctx context.Context, w http.ResponseWriter, u *users.User, provider string) error
}

// TokenIssuer mints email-confirmation tokens.
type TokenIssuer interface {
	IssueConfirmation(userID uuid.UUID, email string) (string, error)
}

// Dispatcher accepts email jobs for asynchronous delivery.
type Dispatcher interface {
	Enqueue(job mail.Job) error
}

// Config carries the reconciler's collaborators and policy.
type Config struct {
	Store                   users.EmailStore
	SignIn                  SignInManager
	Tokens                  TokenIssuer
	Mail                    Dispatcher
	BaseURL                 string
	RequireConfirmedAccount bool
	Log                     *slog.Logger
}

// Service reconciles a normalized external identity against the local
// account store: sign in over an existing link, link by matching email,
// or create a new account once the user confirms an email address.
type Service struct {
	store            users.EmailStore
	signIn           SignInManager
	tokens           TokenIssuer
	mail             Dispatcher
	baseURL          string
	requireConfirmed bool
	log              *slog.Logger
}

func New(cfg Config) *Service {
	return &Service{
		store:            cfg.Store,
		signIn:           cfg.SignIn,
		tokens:           cfg.Tokens,
		mail:             cfg.Mail,
		baseURL:          cfg.BaseURL,
		requireConfirmed: cfg.RequireConfirmedAccount,
		log:              cfg.Log,
	}
}

// AttemptSignIn tries to authenticate the identity over its existing login
// link alone. When no link exists it falls through to Reconcile.
func (s *Service) AttemptSignIn(ctx context.Context, w http.ResponseWriter, identity *auth.Identity, returnURL string) (Outcome, error) {
	result, u, err := s.signIn.ExternalLoginSignIn(ctx, w, identity.Provider, identity.ProviderKey)
	if err != nil {
		return Outcome{}, err
	}

	switch result {
	case signin.ExternalSignedIn:
		s.log.InfoContext(ctx, "user logged in with external provider",
			slog.String("name", identity.Name()),
			logger.Provider(identity.Provider),
			logger.UserID(u.ID),
		)
		return Outcome{State: StateSignedIn, RedirectURL: returnURL}, nil

	case signin.ExternalLockedOut:
		s.log.WarnContext(ctx, "locked-out account attempted external login",
			logger.Provider(identity.Provider),
			logger.UserID(u.ID),
		)
		return Outcome{State: StateLockedOut}, nil

	default:
		return s.Reconcile(ctx, w, identity, returnURL)
	}
}

// Reconcile handles an identity with no existing login link: link to a
// local account matched by claim email, or ask the user to confirm an email
// address. When no user matches, no store record is created.
func (s *Service) Reconcile(ctx context.Context, w http.ResponseWriter, identity *auth.Identity, returnURL string) (Outcome, error) {
	email := identity.Email()

	var msgs []string
	if email != "" {
		existing, err := s.store.FindByEmail(ctx, email)
		switch {
		case err == nil:
			linkErr := s.store.AddLogin(ctx, existing.ID, identity.Provider, identity.ProviderKey)
			if linkErr == nil {
				if err := s.signIn.SignInUser(ctx, w, existing, identity.Provider); err != nil {
					return Outcome{}, err
				}
				s.log.InfoContext(ctx, "external login linked to existing account",
					logger.Email(email),
					logger.Provider(identity.Provider),
				)
				return Outcome{State: StateSignedIn, RedirectURL: returnURL}, nil
			}
			// Linking failed: surface the messages and fall through to the
			// email-collection form. No retry.
			msgs = validationMessages(linkErr)

		case errors.Is(err, users.ErrNotFound):
			// No local account; collect an email below.

		default:
			return Outcome{}, fmt.Errorf("reconcile: lookup by email: %w", err)
		}
	}

	return Outcome{
		State:    StateCollectEmail,
		Email:    email,
		Provider: identity.DisplayName,
		Errors:   msgs,
	}, nil
}

// ConfirmAndCreate creates (or, if the email raced into existence, links) a
// local account for the identity using the user-submitted email, queues the
// confirmation email, and signs in when policy allows.
func (s *Service) ConfirmAndCreate(ctx context.Context, w http.ResponseWriter, identity *auth.Identity, submittedEmail, returnURL string) (Outcome, error) {
	collect := func(msgs []string) Outcome {
		return Outcome{
			State:    StateCollectEmail,
			Email:    submittedEmail,
			Provider: identity.DisplayName,
			Errors:   msgs,
		}
	}

	if _, err := netmail.ParseAddress(submittedEmail); err != nil {
		return collect([]string{invalidEmailMessage}), nil
	}

	// Re-check existence: a matching account means linking, not a duplicate.
	existing, err := s.store.FindByEmail(ctx, submittedEmail)
	switch {
	case err == nil:
		if linkErr := s.store.AddLogin(ctx, existing.ID, identity.Provider, identity.ProviderKey); linkErr != nil {
			return collect(validationMessages(linkErr)), nil
		}
		if err := s.signIn.SignInUser(ctx, w, existing, identity.Provider); err != nil {
			return Outcome{}, err
		}
		s.log.InfoContext(ctx, "existing user linked external login and signed in",
			logger.Email(submittedEmail),
			logger.Provider(identity.Provider),
		)
		return Outcome{State: StateSignedIn, RedirectURL: returnURL}, nil

	case errors.Is(err, users.ErrNotFound):
		// Brand-new email; create below.

	default:
		return Outcome{}, fmt.Errorf("confirm: lookup by email: %w", err)
	}

	u := &users.User{
		Username: submittedEmail,
		Email:    submittedEmail,
	}
	if err := s.store.Create(ctx, u); err != nil {
		return collect(validationMessages(err)), nil
	}

	if err := s.store.AddLogin(ctx, u.ID, identity.Provider, identity.ProviderKey); err != nil {
		// The user row exists but is unlinked. That residue is surfaced for
		// a retry or a support flow, not cleaned up here.
		return collect(validationMessages(err)), nil
	}

	s.log.InfoContext(ctx, "user created an account via external provider",
		logger.Provider(identity.Provider),
		logger.UserID(u.ID),
	)

	s.DispatchConfirmation(ctx, u)

	if s.requireConfirmed {
		return Outcome{State: StatePendingConfirmation, Email: u.Email}, nil
	}

	if err := s.signIn.SignInUser(ctx, w, u, identity.Provider); err != nil {
		return Outcome{}, err
	}
	return Outcome{State: StateSignedIn, RedirectURL: returnURL}, nil
}

// DispatchConfirmation issues a confirmation token and enqueues the
// confirmation email. Failures are logged and swallowed: failing to queue
// must never block account creation.
func (s *Service) DispatchConfirmation(ctx context.Context, u *users.User) {
	code, err := s.tokens.IssueConfirmation(u.ID, u.Email)
	if err != nil {
		s.log.ErrorContext(ctx, "failed to issue confirmation token",
			logger.Error(err),
			logger.UserID(u.ID),
		)
		return
	}

	callbackURL := fmt.Sprintf(
		"%s/confirm-email?user_id=%s&code=%s",
		s.baseURL, u.ID, url.QueryEscape(code),
	)

	job := mail.Job{
		Recipient: u.Email,
		Subject:   confirmationSubject,
		BodyHTML: fmt.Sprintf(
			`Please confirm your account by <a href='%s'>clicking here</a>.`,
			template.HTMLEscapeString(callbackURL),
		),
	}

	if err := s.mail.Enqueue(job); err != nil {
		s.log.ErrorContext(ctx, "failed to enqueue confirmation email",
			logger.Error(err),
			logger.Email(u.Email),
		)
		return
	}

	s.log.InfoContext(ctx, "confirmation email queued", logger.Email(u.Email))
}

// validationMessages flattens a (possibly joined) store error into
// user-facing, field-less messages. Unknown errors collapse to a generic
// message so internals never leak onto the form.
func validationMessages(err error) []string {
	var msgs []string
	for _, e := range flatten(err) {
		switch {
		case errors.Is(e, users.ErrDuplicateEmail), errors.Is(e, users.ErrLoginTaken):
			msgs = append(msgs, e.Error())
		default:
			msgs = append(msgs, genericSaveMessage)
		}
	}
	return msgs
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
