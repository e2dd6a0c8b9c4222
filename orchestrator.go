package portalauth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is the phase of the current sign-in attempt.
type State string

const (
	StateIdle            State = "IDLE"
	StatePendingProvider State = "PENDING_PROVIDER"
	StatePendingExchange State = "PENDING_EXCHANGE"
	StateAuthenticated   State = "AUTHENTICATED"
	StateFailed          State = "FAILED"
)

// Backend is the portal backend's auth surface: the federated-credential
// exchange plus first-party password login and registration. Implemented by
// client.PortalClient.
type Backend interface {
	Exchange(ctx context.Context, cred *ProviderCredential, user *FederatedUser) (*BackendSession, error)
	Login(ctx context.Context, email, password string) (*BackendSession, error)
	Register(ctx context.Context, reg *Registration) (map[string]any, error)
}

// backendMessager is implemented by backend errors that carry a
// user-presentable message (client.APIError does).
type backendMessager interface {
	BackendMessage() string
}

var (
	// ErrUnknownProvider is returned for a provider no adapter was
	// registered for.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrStaleAttempt marks the late resolution of an attempt that was
	// superseded by a newer one. The result is discarded; neither the
	// state machine nor the session store is touched.
	ErrStaleAttempt = errors.New("sign-in attempt superseded")

	// ErrNoAttempt is returned by CompleteSignIn when no attempt is in
	// flight (e.g. a callback arrived after a restart; use
	// RecoverRedirectOutcome for that path).
	ErrNoAttempt = errors.New("no sign-in attempt in flight")
)

// attempt identifies one sign-in flow. seq is monotonically increasing;
// completions carrying a stale seq (or a state value that does not match)
// are rejected rather than allowed to overwrite a newer attempt's result.
type attempt struct {
	seq      uint64
	provider Provider
	state    string
	mode     SignInMode
}

// Orchestrator coordinates provider adapters, redirect recovery, the backend
// exchange, and the session store. It is the facade the host application
// drives, and the only component that writes the SessionStore.
type Orchestrator struct {
	mu       sync.Mutex
	adapters map[Provider]ProviderAdapter
	backend  Backend
	sessions SessionStore
	pending  PendingAttemptStore

	state   State
	active  *attempt
	seq     uint64
	lastErr *NormalizedError

	// OnChange, when set, is invoked after every state transition with the
	// new state and, for StateFailed, the failure. It is called without the
	// orchestrator lock held. Set it before driving any flow.
	OnChange func(state State, failure *NormalizedError)
}

// NewOrchestrator builds an orchestrator over the given backend, stores and
// provider adapters. Adapters are fixed at construction; the orchestrator
// never reaches into ambient provider state.
func NewOrchestrator(backend Backend, sessions SessionStore, pending PendingAttemptStore, adapters ...ProviderAdapter) *Orchestrator {
	byProvider := make(map[Provider]ProviderAdapter, len(adapters))
	for _, a := range adapters {
		byProvider[a.Provider()] = a
	}
	return &Orchestrator{
		adapters: byProvider,
		backend:  backend,
		sessions: sessions,
		pending:  pending,
		state:    StateIdle,
	}
}

// State returns the current attempt state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastError returns the failure of the most recent attempt, or nil.
func (o *Orchestrator) LastError() *NormalizedError {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// CurrentSession returns the persisted session, or (nil, nil) when signed
// out.
func (o *Orchestrator) CurrentSession() (*BackendSession, error) {
	return o.sessions.Load()
}

// SignIn starts a new attempt with the given provider and returns the
// authorization URL the browser must visit. Starting a new attempt while one
// is in flight supersedes the old one: its eventual completion will be
// rejected as stale.
//
// In redirect mode the attempt is persisted before returning, so it survives
// the page navigating away.
func (o *Orchestrator) SignIn(provider Provider, mode SignInMode) (*SignInRequest, error) {
	adapter, ok := o.adapters[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	state, err := NewState()
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.active != nil {
		slog.Info("superseding in-flight sign-in attempt", "provider", o.active.provider, "mode", o.active.mode)
	}
	o.seq++
	o.active = &attempt{seq: o.seq, provider: provider, state: state, mode: mode}
	o.state = StatePendingProvider
	o.lastErr = nil

	if mode == ModeRedirect {
		if err := o.pending.Put(&PendingAttempt{
			Provider:  provider,
			State:     state,
			CreatedAt: time.Now(),
		}); err != nil {
			o.active = nil
			o.state = StateIdle
			o.mu.Unlock()
			return nil, err
		}
	}
	o.mu.Unlock()
	o.notify(StatePendingProvider, nil)

	return &SignInRequest{
		Provider: provider,
		Mode:     mode,
		URL:      adapter.AuthCodeURL(state),
		State:    state,
	}, nil
}

// CompleteSignIn finishes the in-flight attempt from the provider callback
// values: provider completion, normalization, backend exchange, session
// persistence. Callback values from a superseded attempt return
// ErrStaleAttempt and change nothing.
//
// A redirect-mode attempt completing here (the process survived the
// navigation) consumes its persisted record, so a replayed callback cannot
// resume an attempt that already ran its exchange.
func (o *Orchestrator) CompleteSignIn(ctx context.Context, cb CallbackValues) (*BackendSession, error) {
	o.mu.Lock()
	if o.active == nil {
		o.mu.Unlock()
		return nil, ErrNoAttempt
	}
	if cb.State != o.active.state {
		o.mu.Unlock()
		return nil, ErrStaleAttempt
	}
	att := *o.active
	if att.mode == ModeRedirect {
		if err := o.pending.Clear(); err != nil {
			o.mu.Unlock()
			return nil, err
		}
	}
	o.mu.Unlock()

	return o.runCompletion(ctx, att, cb, false)
}

// RecoverRedirectOutcome must be called once on every startup, before any
// other component reads session state. cb carries the provider callback
// values when the current load is a redirect callback, else nil.
//
// With nothing pending it returns (nil, nil) and is a no-op; the pending
// record is consumed on first take, so calling twice never double-processes
// a redirect. A pending attempt whose callback never arrived (the user
// navigated elsewhere) is silently abandoned.
func (o *Orchestrator) RecoverRedirectOutcome(ctx context.Context, cb *CallbackValues) (*BackendSession, error) {
	o.mu.Lock()
	pa, err := o.pending.Take()
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if pa == nil {
		o.mu.Unlock()
		return nil, nil
	}
	if cb == nil || cb.State != pa.State {
		slog.Info("abandoning pending redirect attempt", "provider", pa.Provider)
		o.mu.Unlock()
		return nil, nil
	}

	// The provider already completed in the browser; resume directly in the
	// exchange phase rather than re-entering PENDING_PROVIDER.
	o.seq++
	att := attempt{seq: o.seq, provider: pa.Provider, state: pa.State, mode: ModeRedirect}
	o.active = &att
	o.state = StatePendingExchange
	o.lastErr = nil
	o.mu.Unlock()
	o.notify(StatePendingExchange, nil)

	return o.runCompletion(ctx, att, *cb, true)
}

// LoginWithPassword performs first-party email/password login and persists
// the resulting session. It runs through the same single-attempt discipline
// as the social flows.
func (o *Orchestrator) LoginWithPassword(ctx context.Context, email, password string) (*BackendSession, error) {
	o.mu.Lock()
	o.seq++
	att := &attempt{seq: o.seq, mode: ModePopup}
	o.active = att
	o.state = StatePendingExchange
	o.lastErr = nil
	o.mu.Unlock()
	o.notify(StatePendingExchange, nil)

	session, err := o.backend.Login(ctx, email, password)
	if err != nil {
		ne := o.exchangeFailure(err)
		if failErr := o.failAttempt(att.seq, ne); failErr != nil {
			return nil, failErr
		}
		return nil, ne
	}
	return o.finishAttempt(att.seq, session)
}

// Register creates a first-party account via the backend. It does not
// establish a session; the caller signs in afterwards.
func (o *Orchestrator) Register(ctx context.Context, reg *Registration) (map[string]any, error) {
	return o.backend.Register(ctx, reg)
}

// SignOut clears the persisted session and resets the state machine.
func (o *Orchestrator) SignOut() error {
	o.mu.Lock()
	err := o.sessions.Clear()
	if err == nil {
		o.state = StateIdle
		o.active = nil
		o.lastErr = nil
	}
	o.mu.Unlock()
	if err != nil {
		return err
	}
	o.notify(StateIdle, nil)
	return nil
}

// runCompletion drives one attempt through provider completion,
// normalization and exchange. Network phases run without the lock held;
// every transition re-checks that the attempt is still the active one.
func (o *Orchestrator) runCompletion(ctx context.Context, att attempt, cb CallbackValues, exchanging bool) (*BackendSession, error) {
	adapter, ok := o.adapters[att.provider]
	if !ok {
		// Adapter set is fixed at construction, so a pending record for a
		// provider we no longer have is abandoned, not failed.
		return nil, ErrUnknownProvider
	}

	raw, err := adapter.Complete(ctx, cb)
	if err != nil {
		ne := Translate(CodeInvalidCredential)
		ne.RawMessage = err.Error()
		if failErr := o.failAttempt(att.seq, ne); failErr != nil {
			return nil, failErr
		}
		return nil, ne
	}

	result := Normalize(raw)
	if result.Err != nil {
		ne := TranslateProviderError(result.Err)
		if failErr := o.failAttempt(att.seq, ne); failErr != nil {
			return nil, failErr
		}
		return nil, ne
	}

	if !exchanging {
		if err := o.transition(att.seq, StatePendingExchange); err != nil {
			return nil, err
		}
	}

	session, err := o.backend.Exchange(ctx, result.Credential, result.User)
	if err != nil {
		ne := o.exchangeFailure(err)
		if failErr := o.failAttempt(att.seq, ne); failErr != nil {
			return nil, failErr
		}
		return nil, ne
	}

	return o.finishAttempt(att.seq, session)
}

// finishAttempt persists the session and enters AUTHENTICATED, unless the
// attempt went stale while the exchange was in flight -- a late resolution
// must not overwrite a session established by a newer attempt.
func (o *Orchestrator) finishAttempt(seq uint64, session *BackendSession) (*BackendSession, error) {
	o.mu.Lock()
	if o.active == nil || o.active.seq != seq {
		o.mu.Unlock()
		return nil, ErrStaleAttempt
	}
	if err := o.sessions.Save(session); err != nil {
		ne := &NormalizedError{
			Category:   CategoryExchangeFailed,
			Message:    messageByCategory[CategoryExchangeFailed],
			RawMessage: err.Error(),
		}
		o.state = StateFailed
		o.lastErr = ne
		o.active = nil
		o.mu.Unlock()
		o.notify(StateFailed, ne)
		return nil, ne
	}
	o.state = StateAuthenticated
	o.active = nil
	o.lastErr = nil
	o.mu.Unlock()
	o.notify(StateAuthenticated, nil)
	return session, nil
}

// failAttempt records a terminal failure for the attempt. Returns
// ErrStaleAttempt (and changes nothing) if the attempt is no longer active.
func (o *Orchestrator) failAttempt(seq uint64, ne *NormalizedError) error {
	o.mu.Lock()
	if o.active == nil || o.active.seq != seq {
		o.mu.Unlock()
		return ErrStaleAttempt
	}
	o.state = StateFailed
	o.lastErr = ne
	o.active = nil
	o.mu.Unlock()
	o.notify(StateFailed, ne)
	return nil
}

func (o *Orchestrator) transition(seq uint64, next State) error {
	o.mu.Lock()
	if o.active == nil || o.active.seq != seq {
		o.mu.Unlock()
		return ErrStaleAttempt
	}
	o.state = next
	o.mu.Unlock()
	o.notify(next, nil)
	return nil
}

// exchangeFailure wraps a backend exchange error. The backend's own message
// is surfaced when the error carries one, else the generic category message.
func (o *Orchestrator) exchangeFailure(err error) *NormalizedError {
	ne := &NormalizedError{
		Category:   CategoryExchangeFailed,
		Message:    messageByCategory[CategoryExchangeFailed],
		RawMessage: err.Error(),
	}
	var bm backendMessager
	if errors.As(err, &bm) && bm.BackendMessage() != "" {
		ne.Message = bm.BackendMessage()
	}
	return ne
}

// notify reports one transition. The state and failure are the ones the
// transition installed, captured at the transition site; re-reading o.state
// here could observe a later transition instead.
func (o *Orchestrator) notify(state State, failure *NormalizedError) {
	if cb := o.OnChange; cb != nil {
		cb(state, failure)
	}
}
