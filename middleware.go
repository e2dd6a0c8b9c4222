package portalauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type sessionContextKey string

const contextKeySession sessionContextKey = "portalSession"

// Middleware answers "is a user logged in" for the rest of the portal from
// the SessionStore alone -- route guards and header state read the session
// through here instead of poking at storage keys.
type Middleware struct {
	// Sessions is the authoritative session source. Required.
	Sessions SessionStore

	// GetRedirURL, when set, makes EnsureUser redirect unauthenticated
	// requests there (with the original URL in CallbackURLParam) instead of
	// returning 401.
	GetRedirURL      func(r *http.Request) string
	CallbackURLParam string
}

// EnsureReasonableDefaults fills in defaults for unset fields.
func (m *Middleware) EnsureReasonableDefaults() {
	if m.CallbackURLParam == "" {
		m.CallbackURLParam = "callbackURL"
	}
}

// CurrentSession returns the live session, or nil when signed out or when
// the stored access token has already expired.
func (m *Middleware) CurrentSession() *BackendSession {
	session, err := m.Sessions.Load()
	if err != nil {
		slog.Warn("failed to load session", "err", err)
		return nil
	}
	if session == nil || session.AccessToken == "" {
		return nil
	}
	if session.IsExpired() || accessTokenExpired(session.AccessToken) {
		return nil
	}
	return session
}

// ExtractUser loads the current session (if any) into the request context
// and continues. It never rejects.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session := m.CurrentSession(); session != nil {
			r = r.WithContext(SetSessionInContext(r.Context(), session))
		}
		next.ServeHTTP(w, r)
	})
}

// EnsureUser requires a live session, redirecting or 401-ing otherwise.
func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := m.CurrentSession()
		if session == nil {
			redirURL := ""
			if m.GetRedirURL != nil {
				redirURL = m.GetRedirURL(r)
			}
			if redirURL != "" {
				encoded := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
				http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", redirURL, m.CallbackURLParam, encoded), http.StatusFound)
			} else {
				http.Error(w, "Login required", http.StatusUnauthorized)
			}
			return
		}
		next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
	})
}

// SetSessionInContext stores the session for downstream handlers.
func SetSessionInContext(ctx context.Context, session *BackendSession) context.Context {
	return context.WithValue(ctx, contextKeySession, session)
}

// SessionFromContext retrieves the session placed by the middleware, or nil.
func SessionFromContext(ctx context.Context) *BackendSession {
	if v := ctx.Value(contextKeySession); v != nil {
		if session, ok := v.(*BackendSession); ok {
			return session
		}
	}
	return nil
}

// accessTokenExpired inspects the backend access token's registered claims.
// The signature belongs to the backend and cannot be verified here; only the
// expiry matters for deciding whether the session is still presentable.
// Tokens that are not JWTs, or carry no exp claim, are taken at face value.
func accessTokenExpired(tokenString string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(time.Now())
}
