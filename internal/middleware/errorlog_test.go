package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Promise30/promise-auth/internal/audit"
	"github.com/Promise30/promise-auth/internal/signin"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAuditStore struct {
	mu      sync.Mutex
	entries []audit.Entry
	ctxs    []context.Context
	err     error
}

func (m *mockAuditStore) Save(ctx context.Context, e audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxs = append(m.ctxs, ctx)
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func newTestRouter(audits audit.Store, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorLogging(slog.New(slog.DiscardHandler), audits, "/login"))
	r.GET("/boom", handler)
	return r
}

func TestErrorLogging_GenericErrorGets500(t *testing.T) {
	audits := &mockAuditStore{}
	r := newTestRouter(audits, func(c *gin.Context) {
		c.Error(errors.New("pq: connection refused"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, genericErrorMessage, w.Body.String())

	require.Len(t, audits.entries, 1)
	entry := audits.entries[0]
	assert.Equal(t, "pq: connection refused", entry.Message)
	assert.NotEmpty(t, entry.StackTrace)
	assert.NotEmpty(t, entry.ErrorType)
}

func TestErrorLogging_PanicGets500(t *testing.T) {
	audits := &mockAuditStore{}
	r := newTestRouter(audits, func(c *gin.Context) {
		panic(errors.New("nil map write"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, audits.entries, 1)
}

func TestErrorLogging_AuthErrorRedirectsToLogin(t *testing.T) {
	audits := &mockAuditStore{}
	r := newTestRouter(audits, func(c *gin.Context) {
		c.Error(&signin.AuthError{Reason: "token exchange failed", Err: errors.New("oauth2: cannot fetch token")})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Len(t, audits.entries, 1, "auth failures are still audited")
}

func TestErrorLogging_AccessDeniedMessageRedirects(t *testing.T) {
	r := newTestRouter(&mockAuditStore{}, func(c *gin.Context) {
		c.Error(errors.New(`oauth2: "access_denied" user cancelled consent`))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestErrorLogging_AuditFailureDoesNotChangeResponse(t *testing.T) {
	audits := &mockAuditStore{err: errors.New("audit db down")}
	r := newTestRouter(audits, func(c *gin.Context) {
		c.Error(errors.New("boom"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, genericErrorMessage, w.Body.String())
}

func TestErrorLogging_AuditSurvivesClientDisconnect(t *testing.T) {
	audits := &mockAuditStore{}
	r := newTestRouter(audits, func(c *gin.Context) {
		c.Error(errors.New("boom"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // the client is already gone
	req := httptest.NewRequest(http.MethodGet, "/boom", nil).WithContext(ctx)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Len(t, audits.entries, 1)
	require.Len(t, audits.ctxs, 1)
	assert.NoError(t, audits.ctxs[0].Err(), "audit write must not inherit the cancellation")
}

func TestErrorLogging_ResponseAlreadyStartedReRaises(t *testing.T) {
	audits := &mockAuditStore{}
	r := newTestRouter(audits, func(c *gin.Context) {
		c.String(http.StatusOK, "partial body")
		panic(errors.New("failed mid-render"))
	})

	w := httptest.NewRecorder()
	assert.Panics(t, func() {
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	}, "a started response cannot be replaced, the failure propagates")

	assert.Len(t, audits.entries, 1, "audited before re-raising")
}

func TestErrorLogging_CleanRequestUntouched(t *testing.T) {
	audits := &mockAuditStore{}
	r := newTestRouter(audits, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
	assert.Empty(t, audits.entries)
}

// Stands in for a third-party library error whose type name, not message,
// marks it as a remote-authentication failure.
type remoteAuthenticationError struct{}

func (remoteAuthenticationError) Error() string { return "callback rejected" }

func TestIsAuthRelated(t *testing.T) {
	assert.True(t, isAuthRelated(&signin.AuthError{Reason: "state mismatch"}))
	assert.True(t, isAuthRelated(errors.New("provider returned ACCESS_DENIED")))
	assert.True(t, isAuthRelated(remoteAuthenticationError{}), "matched by type name")
	assert.False(t, isAuthRelated(errors.New("pq: connection refused")))
}
