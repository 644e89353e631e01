package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophmarks/internal/client/models"
	"github.com/dmitrijs2005/gophmarks/internal/client/repositories/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// fragmentPage moves tokens delivered in the URL fragment into the query
// string so the callback handler can read them.
const fragmentPage = `<!doctype html>
<html><body>
<script>
if (location.hash.length > 1) {
  var sep = location.search ? "&" : "?";
  location.replace(location.pathname + location.search + sep + location.hash.substring(1));
} else {
  document.body.textContent = "Sign-in response carried no token.";
}
</script>
</body></html>`

// Handler serves the OAuth callback endpoint.
func (a *Authenticator) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(CallbackPath, a.handleCallback)
	return r
}

func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if code := q.Get("error"); code != "" {
		desc := q.Get("error_description")
		a.logger.Warn(ctx, "provider rejected sign-in", "error", code, "description", desc)
		http.Error(w, fmt.Sprintf("Sign-in failed: %s %s", code, desc), http.StatusBadRequest)
		return
	}

	access := q.Get("access_token")
	if access == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(fragmentPage))
		return
	}

	if !a.consumeState(q.Get("state")) {
		a.logger.Warn(ctx, "callback with unexpected state")
		http.Error(w, "Sign-in failed: unexpected state", http.StatusBadRequest)
		return
	}

	claims, err := ParseAccessToken(access, a.opts.Secret)
	if err != nil {
		a.logger.Warn(ctx, "callback token rejected", "err", err)
		http.Error(w, "Sign-in failed: invalid token", http.StatusUnauthorized)
		return
	}

	tokens := &session.Tokens{AccessToken: access, RefreshToken: q.Get("refresh_token")}
	if err := a.repo.Save(ctx, *tokens); err != nil {
		a.logger.Error(ctx, "failed to persist session", "err", err)
		http.Error(w, "Sign-in failed: could not store session", http.StatusInternalServerError)
		return
	}

	a.mu.Lock()
	a.tokens, a.claims = tokens, claims
	a.emit(models.PresentSession(claims.Subject, claims.Email))
	a.mu.Unlock()

	a.logger.Info(ctx, "signed in", "user", claims.Subject)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "Signed in as %s. You can close this tab.\n", claims.Email)
}

// consumeState checks got against the pending nonce and clears it, so each
// sign-in attempt completes at most once.
func (a *Authenticator) consumeState(got string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	want := a.state
	if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return false
	}
	a.state = ""
	return true
}
