// Package oauth2 implements the portalauth provider adapters for the
// identity providers the portal federates with (Google, Facebook).
package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hopebridge/portalauth"
	"golang.org/x/oauth2"
)

// BaseProvider holds the pieces common to every adapter: the oauth2.Config,
// the provider's profile endpoint, and the HTTP plumbing.
type BaseProvider struct {
	provider    portalauth.Provider
	oauthConfig oauth2.Config
	authParams  []oauth2.AuthCodeOption

	// UserInfoURL is the provider's profile endpoint. Public so tests can
	// point it at a mock server.
	UserInfoURL string

	// HTTPClient, when set, is used for both the code exchange and the
	// profile fetch. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// Provider returns the provider this adapter wraps.
func (b *BaseProvider) Provider() portalauth.Provider { return b.provider }

// AuthCodeURL builds the provider authorization URL for the given state,
// including any provider-specific authorization parameters.
func (b *BaseProvider) AuthCodeURL(state string) string {
	return b.oauthConfig.AuthCodeURL(state, b.authParams...)
}

// Complete finishes a sign-in attempt from the provider callback values.
// Provider-reported failures and transport trouble come back as
// RawOutcome.Err; the error return is reserved for callbacks that carry
// neither a code nor an error.
func (b *BaseProvider) Complete(ctx context.Context, cb portalauth.CallbackValues) (*portalauth.RawOutcome, error) {
	out := &portalauth.RawOutcome{Provider: b.provider}

	if cb.ErrorCode != "" {
		out.Err = &portalauth.ProviderError{Code: cb.ErrorCode, Message: cb.ErrorDescription}
		return out, nil
	}
	if cb.Code == "" {
		return nil, fmt.Errorf("callback carries neither code nor error")
	}

	token, err := b.oauthConfig.Exchange(b.exchangeContext(ctx), cb.Code)
	if err != nil {
		out.Err = classifyTransportError(err)
		return out, nil
	}

	info, err := b.fetchUserInfo(ctx, token)
	if err != nil {
		out.Err = classifyTransportError(err)
		return out, nil
	}

	out.Token = token
	out.UserInfo = info
	return out, nil
}

// exchangeContext routes the x/oauth2 code exchange through HTTPClient.
func (b *BaseProvider) exchangeContext(ctx context.Context) context.Context {
	if b.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	return ctx
}

func (b *BaseProvider) httpClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// fetchUserInfo retrieves the provider profile, keeping the provider's own
// response shape for the normalizer to interpret.
func (b *BaseProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := b.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed: HTTP %d", response.StatusCode)
	}

	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return userInfo, nil
}

// classifyTransportError tags an exchange or profile-fetch failure. A
// provider that answered and rejected (bad or replayed code) is a credential
// problem; everything else is network trouble reaching the provider.
func classifyTransportError(err error) *portalauth.ProviderError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return &portalauth.ProviderError{Code: portalauth.CodeInvalidCredential, Message: retrieveErr.Error()}
	}
	return &portalauth.ProviderError{Code: portalauth.CodeNetworkFailure, Message: err.Error()}
}
