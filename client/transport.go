package client

import (
	"net/http"

	"github.com/hopebridge/portalauth"
)

// SessionTransport is an http.RoundTripper that stamps every outgoing
// request with the current first-party session's bearer token. The rest of
// the portal's API calls ride on this so that "logged in" is decided by the
// SessionStore, not by each caller.
type SessionTransport struct {
	Base     http.RoundTripper
	Sessions portalauth.SessionStore
}

// RoundTrip implements http.RoundTripper. Requests go out unauthenticated
// when no session is stored.
func (t *SessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	session, err := t.Sessions.Load()
	if err == nil && session != nil && session.AccessToken != "" {
		// Clone to avoid mutating the caller's request.
		req2 := req.Clone(req.Context())
		req2.Header.Set("Authorization", "Bearer "+session.AccessToken)
		req = req2
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// NewSessionHTTPClient returns an *http.Client whose requests carry the
// current session token.
func NewSessionHTTPClient(sessions portalauth.SessionStore) *http.Client {
	return &http.Client{Transport: &SessionTransport{Sessions: sessions}}
}
