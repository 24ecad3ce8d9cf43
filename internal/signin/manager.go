package signin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Promise30/promise-auth/internal/logger"
	"github.com/Promise30/promise-auth/internal/session"
	"github.com/Promise30/promise-auth/internal/users"
)

// ExternalSignInResult is the explicit outcome of an external-login sign-in
// attempt. Callers consume it with an exhaustive switch instead of
// interpreting errors.
type ExternalSignInResult int

const (
	ExternalSignedIn ExternalSignInResult = iota
	ExternalLockedOut
	ExternalLinkRequired
)

// Manager is the sign-in collaborator: it owns session issuance and lockout
// interpretation. It never creates users or login links.
type Manager struct {
	users    users.Store
	sessions session.Store
	ttl      time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewManager(userStore users.Store, sessions session.Store, ttl time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		users:    userStore,
		sessions: sessions,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
	}
}

// ExternalLoginSignIn authenticates by (provider, providerKey) alone. The
// login link itself is the credential: no password, no second factor.
func (m *Manager) ExternalLoginSignIn(ctx context.Context, w http.ResponseWriter, provider, providerKey string) (ExternalSignInResult, *users.User, error) {
	u, err := m.users.FindByLogin(ctx, provider, providerKey)
	if errors.Is(err, users.ErrNotFound) {
		return ExternalLinkRequired, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("signin: lookup by login: %w", err)
	}

	if u.IsLockedOut(m.now()) {
		return ExternalLockedOut, u, nil
	}

	if err := m.SignInUser(ctx, w, u, provider); err != nil {
		return 0, nil, err
	}
	return ExternalSignedIn, u, nil
}

// SignInUser issues a non-persistent session for the user and sets the
// session cookie. provider records which external login was used; empty for
// password sign-in.
func (m *Manager) SignInUser(ctx context.Context, w http.ResponseWriter, u *users.User, provider string) error {
	id, err := session.GenerateID()
	if err != nil {
		return err
	}

	now := m.now()
	sess := session.Session{
		SessionID: id,
		UserID:    u.ID.String(),
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.sessions.Create(ctx, sess); err != nil {
		return fmt.Errorf("signin: persist session: %w", err)
	}

	session.SetCookie(w, id, sess.ExpiresAt, session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	m.log.InfoContext(ctx, "session issued",
		logger.UserID(u.ID),
		logger.Provider(provider),
	)
	return nil
}
