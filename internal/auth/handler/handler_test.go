package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Promise30/promise-auth/internal/auth"
	"github.com/Promise30/promise-auth/internal/auth/provider"
	"github.com/Promise30/promise-auth/internal/auth/reconciler"
	"github.com/Promise30/promise-auth/internal/mail"
	"github.com/Promise30/promise-auth/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct{}

func (*stubProvider) Name() string        { return "test" }
func (*stubProvider) DisplayName() string { return "Test" }

func (*stubProvider) AuthCodeURL(state, codeChallenge string) string {
	return "https://provider.example/authorize?state=" + state + "&code_challenge=" + codeChallenge
}

func (*stubProvider) ExchangeCode(ctx context.Context, code, codeVerifier string) (*auth.Identity, error) {
	return &auth.Identity{Provider: "test", ProviderKey: "1", DisplayName: "Test"}, nil
}

type mockUserStore struct {
	users.EmailStore

	findByIDFunc func(ctx context.Context, id uuid.UUID) (*users.User, error)

	confirmed []uuid.UUID
}

func (m *mockUserStore) FindByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockUserStore) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	m.confirmed = append(m.confirmed, id)
	return nil
}

func newTestHandler(store *mockUserStore) (*Handler, *gin.Engine) {
	gin.SetMode(gin.TestMode)

	h := NewHandler(Deps{
		Providers: provider.NewRegistry(&stubProvider{}),
		Users:     store,
		Tokens:    mail.NewConfirmationTokens("test-secret", time.Hour),
		Log:       slog.New(slog.DiscardHandler),
	})

	r := gin.New()
	r.LoadHTMLGlob("../../../web/templates/*.html")
	h.RegisterRoutes(r)
	return h, r
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSafeReturnURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/dashboard", "/dashboard"},
		{"/a?b=c", "/a?b=c"},
		{"//evil.example.com", "/"},
		{"https://evil.example.com", "/"},
		{"javascript:alert(1)", "/"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, safeReturnURL(tc.raw), "input %q", tc.raw)
	}
}

func TestChallenge_UnknownProvider(t *testing.T) {
	_, r := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/login/nope", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChallenge_RedirectsWithStateAndPKCE(t *testing.T) {
	_, r := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/login/test?return_url=/dashboard", nil))

	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "https://provider.example/authorize?state=")

	state := findCookie(t, w, stateCookieName)
	require.NotNil(t, state)
	assert.Contains(t, w.Header().Get("Location"), "state="+state.Value)

	require.NotNil(t, findCookie(t, w, pkceCookieName))

	ret := findCookie(t, w, returnURLCookieName)
	require.NotNil(t, ret)
	assert.Equal(t, "/dashboard", ret.Value)
}

func TestChallenge_RejectsAbsoluteReturnURL(t *testing.T) {
	_, r := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/login/test?return_url=//evil.example.com", nil))

	ret := findCookie(t, w, returnURLCookieName)
	require.NotNil(t, ret)
	assert.Equal(t, "/", ret.Value, "only local paths survive")
}

func TestCallback_RemoteErrorRedirectsToLogin(t *testing.T) {
	_, r := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/oauth/callback/test?error=access_denied", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.NotNil(t, findCookie(t, w, flashCookieName), "message carried via flash")
}

func TestCallback_TamperedStateRedirectsToLogin(t *testing.T) {
	_, r := newTestHandler(&mockUserStore{})

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/test?state=forged&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "original"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestCallback_MissingCodeRedirectsToLogin(t *testing.T) {
	_, r := newTestHandler(&mockUserStore{})

	req := httptest.NewRequest(http.MethodGet, "/oauth/callback/test?state=s1", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "s1"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func renderContext(t *testing.T, w *httptest.ResponseRecorder) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, engine := gin.CreateTestContext(w)
	engine.LoadHTMLGlob("../../../web/templates/*.html")
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c
}

func TestRenderOutcome_PendingConfirmation(t *testing.T) {
	h, _ := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	h.renderOutcome(renderContext(t, w), reconciler.Outcome{
		State: reconciler.StatePendingConfirmation,
		Email: "a@x.com",
	})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/register/confirmation?Email=a%40x.com", w.Header().Get("Location"))
}

func TestRenderOutcome_SignedInSanitizesRedirect(t *testing.T) {
	h, _ := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	h.renderOutcome(renderContext(t, w), reconciler.Outcome{
		State:       reconciler.StateSignedIn,
		RedirectURL: "//evil.example.com",
	})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	h.renderOutcome(renderContext(t, w), reconciler.Outcome{
		State:       reconciler.StateSignedIn,
		RedirectURL: "/dashboard",
	})
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestRenderOutcome_LockedOut(t *testing.T) {
	h, _ := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	h.renderOutcome(renderContext(t, w), reconciler.Outcome{State: reconciler.StateLockedOut})

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/lockout", w.Header().Get("Location"))
}

func TestRenderOutcome_CollectEmailRendersForm(t *testing.T) {
	h, _ := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	h.renderOutcome(renderContext(t, w), reconciler.Outcome{
		State:    reconciler.StateCollectEmail,
		Email:    "prefill@x.com",
		Provider: "Test",
		Errors:   []string{users.ErrDuplicateEmail.Error()},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Test")
	assert.Contains(t, body, "prefill@x.com")
	assert.Contains(t, body, users.ErrDuplicateEmail.Error())
}

func TestConfirmEmail_Success(t *testing.T) {
	userID := uuid.New()
	store := &mockUserStore{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*users.User, error) {
			require.Equal(t, userID, id)
			return &users.User{ID: userID, Email: "a@x.com"}, nil
		},
	}
	h, r := newTestHandler(store)

	code, err := h.tokens.IssueConfirmation(userID, "a@x.com")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/confirm-email?user_id="+userID.String()+"&code="+code, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you for confirming")
	assert.Equal(t, []uuid.UUID{userID}, store.confirmed)
}

func TestConfirmEmail_SplicedUserIDRejected(t *testing.T) {
	victim := uuid.New()
	store := &mockUserStore{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*users.User, error) {
			return &users.User{ID: id, Email: "a@x.com"}, nil
		},
	}
	h, r := newTestHandler(store)

	// Token for one user, query naming another.
	code, err := h.tokens.IssueConfirmation(uuid.New(), "a@x.com")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/confirm-email?user_id="+victim.String()+"&code="+code, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.confirmed, "no account confirmed off a spliced link")
}

func TestConfirmEmail_StaleEmailRejected(t *testing.T) {
	userID := uuid.New()
	store := &mockUserStore{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*users.User, error) {
			return &users.User{ID: userID, Email: "new@x.com"}, nil
		},
	}
	h, r := newTestHandler(store)

	// Issued before the address changed.
	code, err := h.tokens.IssueConfirmation(userID, "old@x.com")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/confirm-email?user_id="+userID.String()+"&code="+code, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, store.confirmed)
}

func TestConfirmEmail_GarbageInputRejected(t *testing.T) {
	store := &mockUserStore{
		findByIDFunc: func(ctx context.Context, id uuid.UUID) (*users.User, error) {
			t.Fatal("no lookup for an invalid token")
			return nil, nil
		},
	}
	_, r := newTestHandler(store)

	for _, target := range []string{
		"/confirm-email",
		"/confirm-email?user_id=" + uuid.NewString(),
		"/confirm-email?user_id=not-a-uuid&code=x",
		"/confirm-email?user_id=" + uuid.NewString() + "&code=not-a-token",
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, "target %s", target)
	}
	assert.Empty(t, store.confirmed)
}

func TestRegisterConfirmationPage_ShowsEmail(t *testing.T) {
	_, r := newTestHandler(&mockUserStore{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/register/confirmation?Email=a%40x.com", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@x.com")
}

func TestLoginPage_ConsumesFlash(t *testing.T) {
	_, r := newTestHandler(&mockUserStore{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(&http.Cookie{Name: flashCookieName, Value: "Error+from+external+provider%3A+access_denied"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error from external provider: access_denied")

	cleared := findCookie(t, w, flashCookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0, "flash is one-shot")
}
