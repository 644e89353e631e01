package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu     sync.Mutex
	tokens *session.Tokens
}

func (m *memRepo) Load(context.Context) (*session.Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil, nil
	}
	t := *m.tokens
	return &t, nil
}

func (m *memRepo) Save(_ context.Context, t session.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = &t
	return nil
}

func (m *memRepo) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	return nil
}

// authServer fakes the backend auth endpoint's /token and /logout routes.
type authServer struct {
	*httptest.Server
	mu          sync.Mutex
	refreshResp *tokenResponse
	refreshes   int
	logoutAuth  string
}

func newAuthServer(t *testing.T) *authServer {
	s := &authServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.refreshes++
		if r.URL.Query().Get("grant_type") != "refresh_token" || s.refreshResp == nil {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(s.refreshResp)
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.logoutAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func newTestAuthenticator(t *testing.T, srv *authServer, repo session.Repository, open Opener) *Authenticator {
	t.Helper()
	if open == nil {
		open = func(string) error { return nil }
	}
	a := New(Options{
		AuthURL:      srv.URL,
		APIKey:       "anon",
		Secret:       testSecret,
		CallbackAddr: "127.0.0.1:0",
	}, repo, logging.Nop(), open)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func nextTransition(t *testing.T, a *Authenticator) models.Session {
	t.Helper()
	select {
	case s := <-a.Transitions():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no transition")
	}
	return models.Session{}
}

func assertNoTransition(t *testing.T, a *Authenticator) {
	t.Helper()
	select {
	case s := <-a.Transitions():
		t.Fatalf("unexpected transition %+v", s)
	default:
	}
}

func TestResolveSession_NothingPersisted(t *testing.T) {
	a := newTestAuthenticator(t, newAuthServer(t), &memRepo{}, nil)

	s, err := a.ResolveSession(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Present())
	assertNoTransition(t, a)
}

func TestResolveSession_ValidToken(t *testing.T) {
	repo := &memRepo{tokens: &session.Tokens{
		AccessToken:  signToken(t, testSecret, "u1", "a@example.com", time.Now().Add(time.Hour)),
		RefreshToken: "r1",
	}}
	a := newTestAuthenticator(t, newAuthServer(t), repo, nil)

	s, err := a.ResolveSession(context.Background())
	require.NoError(t, err)
	require.True(t, s.Present())
	assert.Equal(t, "u1", s.UserID())
	assert.Equal(t, "a@example.com", s.Identity.Email)
}

func TestResolveSession_ExpiredTokenRefreshed(t *testing.T) {
	srv := newAuthServer(t)
	fresh := signToken(t, testSecret, "u1", "a@example.com", time.Now().Add(time.Hour))
	srv.refreshResp = &tokenResponse{AccessToken: fresh, RefreshToken: "r2"}

	repo := &memRepo{tokens: &session.Tokens{
		AccessToken:  signToken(t, testSecret, "u1", "a@example.com", time.Now().Add(-time.Minute)),
		RefreshToken: "r1",
	}}
	a := newTestAuthenticator(t, srv, repo, nil)

	s, err := a.ResolveSession(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Present())
	assert.Equal(t, 1, srv.refreshes)
	assert.Equal(t, "r2", repo.tokens.RefreshToken)
	assert.Equal(t, fresh, repo.tokens.AccessToken)
}

func TestResolveSession_RefreshRejectedClearsSession(t *testing.T) {
	repo := &memRepo{tokens: &session.Tokens{
		AccessToken:  signToken(t, testSecret, "u1", "a@example.com", time.Now().Add(-time.Minute)),
		RefreshToken: "r1",
	}}
	a := newTestAuthenticator(t, newAuthServer(t), repo, nil)

	s, err := a.ResolveSession(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Present())
	assert.Nil(t, repo.tokens)
}

func TestResolveSession_ForgedTokenDiscarded(t *testing.T) {
	repo := &memRepo{tokens: &session.Tokens{
		AccessToken: signToken(t, []byte("someone-else"), "u1", "", time.Now().Add(time.Hour)),
	}}
	a := newTestAuthenticator(t, newAuthServer(t), repo, nil)

	s, err := a.ResolveSession(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Present())
	assert.Nil(t, repo.tokens)
}

func startSignIn(t *testing.T, a *Authenticator, opened *string) url.Values {
	t.Helper()
	require.NoError(t, a.SignIn(context.Background(), "github", ""))

	u, err := url.Parse(*opened)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", u.Path)
	assert.Equal(t, "github", u.Query().Get("provider"))

	redirect, err := url.Parse(u.Query().Get("redirect_to"))
	require.NoError(t, err)
	assert.Equal(t, CallbackPath, redirect.Path)
	require.NotEmpty(t, redirect.Query().Get("state"))
	return redirect.Query()
}

func callback(a *Authenticator, q url.Values) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, CallbackPath+"?"+q.Encode(), nil)
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSignIn_CallbackEstablishesSession(t *testing.T) {
	repo := &memRepo{}
	var opened string
	a := newTestAuthenticator(t, newAuthServer(t), repo, func(u string) error { opened = u; return nil })

	q := startSignIn(t, a, &opened)
	access := signToken(t, testSecret, "u1", "a@example.com", time.Now().Add(time.Hour))
	q.Set("access_token", access)
	q.Set("refresh_token", "r1")

	rec := callback(a, q)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "a@example.com")

	s := nextTransition(t, a)
	assert.True(t, s.Present())
	assert.Equal(t, "u1", s.UserID())
	assert.Equal(t, access, repo.tokens.AccessToken)
	assert.Equal(t, "r1", repo.tokens.RefreshToken)

	// the state nonce is single-use
	rec = callback(a, q)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertNoTransition(t, a)
}

func TestCallback_Rejections(t *testing.T) {
	var opened string
	a := newTestAuthenticator(t, newAuthServer(t), &memRepo{}, func(u string) error { opened = u; return nil })
	q := startSignIn(t, a, &opened)

	t.Run("provider error", func(t *testing.T) {
		rec := callback(a, url.Values{"error": {"access_denied"}, "error_description": {"user cancelled"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "user cancelled")
	})

	t.Run("fragment page", func(t *testing.T) {
		rec := callback(a, url.Values{"state": {q.Get("state")}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "location.hash")
	})

	t.Run("wrong state", func(t *testing.T) {
		rec := callback(a, url.Values{
			"state":        {"forged"},
			"access_token": {signToken(t, testSecret, "u1", "", time.Now().Add(time.Hour))},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad token", func(t *testing.T) {
		bad := url.Values{"state": {q.Get("state")}, "access_token": {"garbage"}}
		rec := callback(a, bad)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	assertNoTransition(t, a)
}

func TestSignIn_InitiationFailures(t *testing.T) {
	a := newTestAuthenticator(t, newAuthServer(t), &memRepo{}, func(string) error { return errors.New("no browser") })

	assert.ErrorIs(t, a.SignIn(context.Background(), "  ", ""), common.ErrAuthInitiation)
	assert.ErrorIs(t, a.SignIn(context.Background(), "github", ""), common.ErrAuthInitiation)
}

func TestSignOut(t *testing.T) {
	srv := newAuthServer(t)
	access := signToken(t, testSecret, "u1", "a@example.com", time.Now().Add(time.Hour))
	repo := &memRepo{tokens: &session.Tokens{AccessToken: access, RefreshToken: "r1"}}
	a := newTestAuthenticator(t, srv, repo, nil)

	_, err := a.ResolveSession(context.Background())
	require.NoError(t, err)

	require.NoError(t, a.SignOut(context.Background()))
	assert.False(t, nextTransition(t, a).Present())
	assert.Nil(t, repo.tokens)
	assert.Equal(t, "Bearer "+access, srv.logoutAuth)
	assert.False(t, a.Session().Present())

	assert.ErrorIs(t, a.SignOut(context.Background()), common.ErrNoSession)
}

func TestAccessClaims(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		a := newTestAuthenticator(t, newAuthServer(t), &memRepo{}, nil)
		_, err := a.AccessClaims(context.Background())
		assert.ErrorIs(t, err, common.ErrNoSession)
	})

	t.Run("refresh rejected invalidates", func(t *testing.T) {
		repo := &memRepo{tokens: &session.Tokens{
			AccessToken:  signToken(t, testSecret, "u1", "a@example.com", time.Now().Add(time.Hour)),
			RefreshToken: "r1",
		}}
		a := newTestAuthenticator(t, newAuthServer(t), repo, nil)
		_, err := a.ResolveSession(context.Background())
		require.NoError(t, err)

		a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

		_, err = a.AccessClaims(context.Background())
		assert.ErrorIs(t, err, common.ErrUnauthorized)
		assert.False(t, nextTransition(t, a).Present())
		assert.Nil(t, repo.tokens)
	})

	t.Run("valid token returned as is", func(t *testing.T) {
		srv := newAuthServer(t)
		repo := &memRepo{tokens: &session.Tokens{
			AccessToken: signToken(t, testSecret, "u1", "a@example.com", time.Now().Add(time.Hour)),
		}}
		a := newTestAuthenticator(t, srv, repo, nil)
		_, err := a.ResolveSession(context.Background())
		require.NoError(t, err)

		c, err := a.AccessClaims(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "u1", c.Subject)
		assert.Equal(t, 0, srv.refreshes)
	})
}
