package portalauth

import (
	"time"

	"golang.org/x/oauth2"
)

// Provider identifies an external identity provider.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
)

// FederatedUser is the read-only profile snapshot obtained from an identity
// provider. It is used for display and as the exchange payload; it never
// authorizes anything by itself. All fields except UID are best-effort --
// providers may omit display name, photo or even email.
type FederatedUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	ProviderID  string `json:"providerId,omitempty"` // e.g. "google.com"
}

// ProviderCredential is the third-party credential produced by a completed
// sign-in. It is exchanged exactly once and never persisted.
type ProviderCredential struct {
	Provider    Provider
	AccessToken string
	IDToken     string // optional; only some providers supply one
}

// BackendUser is the backend-owned user profile returned alongside issued
// tokens. The auth core passes it through without interpreting it.
type BackendUser map[string]any

// BackendSession is the first-party session issued by the backend exchange
// or login endpoints. It is the only credential the rest of the portal
// trusts, and it is owned exclusively by a SessionStore.
type BackendSession struct {
	AccessToken  string      `json:"token"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	User         BackendUser `json:"user,omitempty"`
	ExpiresAt    time.Time   `json:"expiresAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt,omitempty"`
}

// IsExpired returns true if the session carries an expiry and it has passed.
func (s *BackendSession) IsExpired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}

// Registration carries the fields for first-party account creation.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// RawOutcome is the uniform result of one completed provider sign-in
// attempt, popup or redirect. Exactly one of (Token, UserInfo) or Err is
// set. UserInfo keeps the provider's own response shape; Normalize turns it
// into typed fields.
type RawOutcome struct {
	Provider Provider
	Mode     SignInMode
	Token    *oauth2.Token
	UserInfo map[string]any
	Err      *ProviderError
}

// SessionStore is the single authoritative location for the current
// first-party session. Save replaces the whole session atomically; a
// partially updated session must never be observable. Load returning
// (nil, nil) means "not authenticated" -- there is no other sentinel.
type SessionStore interface {
	Save(s *BackendSession) error
	Load() (*BackendSession, error)
	Clear() error
}
