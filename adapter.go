package portalauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// SignInMode distinguishes the two browser completion paths.
type SignInMode string

const (
	// ModePopup resolves within the same process lifetime; the provider
	// callback is fed straight to Orchestrator.CompleteSignIn.
	ModePopup SignInMode = "popup"

	// ModeRedirect navigates the whole page away. The attempt is persisted
	// before navigation and resumed by RecoverRedirectOutcome on next load.
	ModeRedirect SignInMode = "redirect"
)

// SignInRequest is what the host needs to send the browser to the provider:
// the authorization URL and the state value tying the callback back to this
// attempt.
type SignInRequest struct {
	Provider Provider
	Mode     SignInMode
	URL      string
	State    string
}

// CallbackValues are the query parameters the provider delivers to the
// callback URL, for both successful and failed attempts.
type CallbackValues struct {
	State            string
	Code             string
	ErrorCode        string
	ErrorDescription string
}

// ProviderAdapter wraps one external OAuth provider behind a uniform
// contract. Implementations live in the oauth2 subpackage and are
// constructed once at startup; nothing else reaches into provider SDK state.
type ProviderAdapter interface {
	Provider() Provider

	// AuthCodeURL builds the provider authorization URL for a sign-in
	// attempt identified by state.
	AuthCodeURL(state string) string

	// Complete finishes an attempt from its callback values: it exchanges
	// the authorization code and fetches the provider profile. Provider
	// failures (user cancelled, popup blocked, configuration problems,
	// network trouble reaching the provider) are surfaced as
	// RawOutcome.Err, not swallowed and not returned as a Go error; the
	// error return is reserved for misuse (e.g. empty code and no error
	// callback).
	Complete(ctx context.Context, cb CallbackValues) (*RawOutcome, error)
}

// PendingAttempt is the persisted record of a redirect-mode attempt between
// the navigation away and the next page load.
type PendingAttempt struct {
	Provider  Provider  `json:"provider"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingAttemptStore persists at most one PendingAttempt across process
// restarts. Take removes the record as it returns it, which is what makes
// redirect recovery idempotent; (nil, nil) means nothing is pending.
type PendingAttemptStore interface {
	Put(a *PendingAttempt) error
	Take() (*PendingAttempt, error)
	Clear() error
}

// NewState generates a cryptographically random OAuth state value.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
