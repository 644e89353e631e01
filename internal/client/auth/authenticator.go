package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/client/repositories/session"
	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/dmitrijs2005/gophmarks/internal/logging"
	"github.com/dmitrijs2005/gophmarks/internal/netx"
)

const (
	CallbackPath = "/auth/callback"

	// Access tokens this close to expiry are refreshed before use.
	expiryLeeway = 10 * time.Second
)

// Opener presents the provider sign-in URL to the user, typically by
// printing it or launching a browser.
type Opener func(url string) error

type Options struct {
	AuthURL      string
	APIKey       string
	Secret       []byte
	CallbackAddr string
	HTTPClient   *http.Client
}

type Authenticator struct {
	opts   Options
	repo   session.Repository
	logger logging.Logger
	open   Opener
	now    func() time.Time

	transitions chan models.Session

	mu     sync.Mutex
	tokens *session.Tokens
	claims *Claims
	state  string
	server *http.Server

	// serializes token refreshes
	refreshMu sync.Mutex
}

func New(opts Options, repo session.Repository, logger logging.Logger, open Opener) *Authenticator {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Authenticator{
		opts:        opts,
		repo:        repo,
		logger:      logger,
		open:        open,
		now:         time.Now,
		transitions: make(chan models.Session, 16),
	}
}

// Transitions delivers every session change after start-up resolution.
func (a *Authenticator) Transitions() <-chan models.Session {
	return a.transitions
}

// Session returns the current session.
func (a *Authenticator) Session() models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionLocked()
}

func (a *Authenticator) sessionLocked() models.Session {
	if a.claims == nil {
		return models.AbsentSession()
	}
	return models.PresentSession(a.claims.Subject, a.claims.Email)
}

// emit publishes s. When the buffer is full the oldest pending transition is
// dropped; only the latest state matters to the consumer.
func (a *Authenticator) emit(s models.Session) {
	for {
		select {
		case a.transitions <- s:
			return
		default:
		}
		select {
		case <-a.transitions:
		default:
		}
	}
}

// ResolveSession restores the persisted session, refreshing the access token
// if it has expired. A session that cannot be restored is discarded and the
// result is absent.
func (a *Authenticator) ResolveSession(ctx context.Context) (models.Session, error) {
	tokens, err := a.repo.Load(ctx)
	if err != nil {
		return models.AbsentSession(), err
	}
	if tokens == nil {
		return models.AbsentSession(), nil
	}

	claims, err := ParseAccessToken(tokens.AccessToken, a.opts.Secret)
	if err == nil && !a.expiring(claims) {
		a.mu.Lock()
		a.tokens, a.claims = tokens, claims
		a.mu.Unlock()
		a.logger.Info(ctx, "session restored", "user", claims.Subject)
		return models.PresentSession(claims.Subject, claims.Email), nil
	}

	if err == nil || errors.Is(err, common.ErrTokenExpired) {
		claims, err = a.refresh(ctx, tokens.RefreshToken)
		if err == nil {
			a.logger.Info(ctx, "session restored after refresh", "user", claims.Subject)
			return models.PresentSession(claims.Subject, claims.Email), nil
		}
	}

	a.logger.Warn(ctx, "discarding persisted session", "err", err)
	if err := a.repo.Clear(ctx); err != nil {
		a.logger.Error(ctx, "failed to clear session", "err", err)
	}
	return models.AbsentSession(), nil
}

func (a *Authenticator) expiring(c *Claims) bool {
	return c.ExpiresAt != nil && !a.now().Add(expiryLeeway).Before(c.ExpiresAt.Time)
}

// AccessClaims returns the claims of a valid access token, refreshing it
// first when it is about to expire. If the refresh is rejected the session
// is invalidated and ErrUnauthorized is returned.
func (a *Authenticator) AccessClaims(ctx context.Context) (*Claims, error) {
	a.mu.Lock()
	claims, tokens := a.claims, a.tokens
	a.mu.Unlock()

	if claims == nil || tokens == nil {
		return nil, common.ErrNoSession
	}
	if !a.expiring(claims) {
		return claims, nil
	}

	refreshed, err := a.refresh(ctx, tokens.RefreshToken)
	if err == nil {
		return refreshed, nil
	}
	if errors.Is(err, common.ErrUnavailable) {
		return nil, err
	}

	a.Invalidate(ctx, err)
	return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// refresh exchanges refreshToken for a new token pair and installs it.
func (a *Authenticator) refresh(ctx context.Context, refreshToken string) (*Claims, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	a.mu.Lock()
	if a.claims != nil && a.tokens != nil && a.tokens.RefreshToken != refreshToken && !a.expiring(a.claims) {
		claims := a.claims
		a.mu.Unlock()
		return claims, nil
	}
	a.mu.Unlock()

	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", common.ErrInvalidToken)
	}

	var resp tokenResponse
	err := netx.PostJSON(ctx, a.opts.HTTPClient,
		a.opts.AuthURL+"/token?grant_type=refresh_token",
		a.header(""),
		map[string]string{"refresh_token": refreshToken},
		&resp)
	if err != nil {
		var se *netx.StatusError
		if errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: refresh rejected: %v", common.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("%w: refresh: %v", common.ErrUnavailable, err)
	}

	claims, err := ParseAccessToken(resp.AccessToken, a.opts.Secret)
	if err != nil {
		return nil, err
	}

	tokens := &session.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := a.repo.Save(ctx, *tokens); err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.tokens, a.claims = tokens, claims
	a.mu.Unlock()

	a.logger.Debug(ctx, "access token refreshed", "user", claims.Subject)
	return claims, nil
}

func (a *Authenticator) header(bearer string) http.Header {
	h := http.Header{}
	if a.opts.APIKey != "" {
		h.Set("apikey", a.opts.APIKey)
	}
	if bearer != "" {
		h.Set("Authorization", "Bearer "+bearer)
	}
	return h
}

// Invalidate drops the session after the backend stopped honouring it.
func (a *Authenticator) Invalidate(ctx context.Context, reason error) {
	a.logger.Warn(ctx, "session invalidated", "reason", reason)
	a.dropSession(ctx)
}

// SignOut revokes the refresh token (best effort), forgets the session and
// publishes the absent transition.
func (a *Authenticator) SignOut(ctx context.Context) error {
	a.mu.Lock()
	tokens := a.tokens
	a.mu.Unlock()

	if tokens == nil {
		return common.ErrNoSession
	}

	if err := netx.PostJSON(ctx, a.opts.HTTPClient, a.opts.AuthURL+"/logout",
		a.header(tokens.AccessToken), struct{}{}, nil); err != nil {
		a.logger.Warn(ctx, "remote sign-out failed", "err", err)
	}

	a.dropSession(ctx)
	return nil
}

func (a *Authenticator) dropSession(ctx context.Context) {
	if err := a.repo.Clear(ctx); err != nil {
		a.logger.Error(ctx, "failed to clear session", "err", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens, a.claims = nil, nil
	a.emit(models.AbsentSession())
}

// SignIn starts the redirect flow for provider. It only initiates: the
// session becomes present later, when the callback arrives. redirectTo
// overrides the local callback URL as the post-authentication target.
func (a *Authenticator) SignIn(ctx context.Context, provider, redirectTo string) error {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return fmt.Errorf("%w: provider is required", common.ErrAuthInitiation)
	}

	if err := a.ensureServer(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrAuthInitiation, err)
	}

	state, err := common.MakeRandHexString(16)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrAuthInitiation, err)
	}

	if redirectTo == "" {
		redirectTo = a.CallbackURL()
	}
	target, err := url.Parse(redirectTo)
	if err != nil {
		return fmt.Errorf("%w: redirect target: %v", common.ErrAuthInitiation, err)
	}
	q := target.Query()
	q.Set("state", state)
	target.RawQuery = q.Encode()

	authorize := a.opts.AuthURL + "/authorize?" + url.Values{
		"provider":    {provider},
		"redirect_to": {target.String()},
	}.Encode()

	a.mu.Lock()
	a.state = state
	a.mu.Unlock()

	if err := a.open(authorize); err != nil {
		return fmt.Errorf("%w: %v", common.ErrAuthInitiation, err)
	}

	a.logger.Info(ctx, "sign-in started", "provider", provider)
	return nil
}

// CallbackURL is the local address the provider redirects back to.
func (a *Authenticator) CallbackURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	addr := a.opts.CallbackAddr
	if a.server != nil && a.server.Addr != "" {
		addr = a.server.Addr
	}
	return "http://" + addr + CallbackPath
}

func (a *Authenticator) ensureServer(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", a.opts.CallbackAddr)
	if err != nil {
		return fmt.Errorf("callback listener: %w", err)
	}

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(context.Background(), "callback server stopped", "err", err)
		}
	}()

	a.server = srv
	a.logger.Info(ctx, "callback server listening", "addr", srv.Addr)
	return nil
}

// Close stops the callback listener.
func (a *Authenticator) Close() error {
	a.mu.Lock()
	srv := a.server
	a.server = nil
	a.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
