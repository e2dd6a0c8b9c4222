// Package portalauth implements the identity-federation and
// session-establishment core of the HopeBridge donor/volunteer portal.
//
// The portal accepts two kinds of sign-in: first-party email/password against
// the HopeBridge backend, and third-party OAuth sign-in with Google or
// Facebook. Either way the only credential the rest of the application
// trusts is the first-party session (access + refresh token pair plus a
// cached user profile) owned by a SessionStore.
//
// # Architecture
//
// ProviderAdapter: wraps one external OAuth provider. Implementations live in
// the oauth2 subpackage. An adapter starts a sign-in attempt (producing the
// authorization URL the browser must visit) and completes it from the
// provider callback values, returning a uniform RawOutcome.
//
// Normalizer: extracts a stable (user, credential) pair from the
// provider-shaped RawOutcome, tolerating missing optional fields. Raw
// provider error codes are carried as a tagged *ProviderError and never leak
// past Translate, which maps them onto a closed set of user-facing
// categories.
//
// Backend: exchanges a verified provider credential for a first-party
// session, and serves password login and registration. The HTTP
// implementation lives in the client subpackage.
//
// Orchestrator: the facade the host application drives. It owns the sign-in
// state machine, enforces that only one attempt is in flight, recovers
// redirect-based attempts on startup, and is the sole writer of the
// SessionStore.
//
// # Basic Usage
//
//	sessions, _ := fs.NewSessionStore("")
//	pending, _ := fs.NewPendingStore("")
//	backend := client.New("http://localhost:8000/api")
//
//	orch := portalauth.NewOrchestrator(backend, sessions, pending,
//	    oauth2.NewGoogle("", "", ""),
//	    oauth2.NewFacebook("", "", ""),
//	)
//
//	// Before anything reads session state:
//	orch.RecoverRedirectOutcome(ctx, callbackFromCurrentURL)
//
//	// On a sign-in click:
//	req, _ := orch.SignIn(portalauth.ProviderGoogle, portalauth.ModePopup)
//	// ... browser visits req.URL; the callback handler then calls:
//	session, err := orch.CompleteSignIn(ctx, cb)
//
// # Popup vs Redirect
//
// A popup attempt resolves inside one process lifetime: the callback handler
// feeds CompleteSignIn directly. A redirect attempt navigates the whole page
// away; the attempt is persisted before navigation and consumed exactly once
// by RecoverRedirectOutcome on the next load. Recovery with nothing pending
// is a no-op, so it is safe (and required) to call on every startup before
// other components consult the SessionStore.
package portalauth
