// Package client implements the HTTP client for the HopeBridge backend's
// auth surface: the federated-credential exchange plus first-party password
// login and registration.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hopebridge/portalauth"
)

// DefaultTimeout bounds every backend call so a hung exchange surfaces as a
// failure instead of blocking the sign-in flow indefinitely.
const DefaultTimeout = 15 * time.Second

// PortalClient talks to the portal backend. It implements
// portalauth.Backend. Nothing here retries: a rejected exchange must fail
// deterministically, and retrying is always a fresh user-initiated attempt.
type PortalClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a PortalClient.
type Option func(*PortalClient)

// WithHTTPClient sets a custom HTTP client (for TLS config, proxies, etc.).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *PortalClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *PortalClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a client for the backend at baseURL (e.g.
// "http://localhost:8000/api").
func New(baseURL string, opts ...Option) *PortalClient {
	c := &PortalClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a backend rejection (non-2xx). The message is whatever the
// backend put in its error body, when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
}

// BackendMessage exposes the backend's own message for user display.
func (e *APIError) BackendMessage() string { return e.Message }

// socialAuthRequest is the POST /users/social-auth/ body.
type socialAuthRequest struct {
	Provider  string `json:"provider"`
	Token     string `json:"token"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoURL  string `json:"photo_url"`
	UID       string `json:"uid"`
}

// socialAuthResponse is its success shape.
type socialAuthResponse struct {
	Access  string                 `json:"access"`
	Refresh string                 `json:"refresh"`
	User    portalauth.BackendUser `json:"user"`
}

// loginResponse is the POST /auth/login/ success shape.
type loginResponse struct {
	Token string                 `json:"token"`
	User  portalauth.BackendUser `json:"user"`
}

// Exchange trades a verified provider credential for a first-party session.
// The provider access token is sent once and never stored; what comes back
// is what gets persisted.
func (c *PortalClient) Exchange(ctx context.Context, cred *portalauth.ProviderCredential, user *portalauth.FederatedUser) (*portalauth.BackendSession, error) {
	first, last := SplitDisplayName(user.DisplayName)
	req := socialAuthRequest{
		Provider:  string(cred.Provider),
		Token:     cred.AccessToken,
		Email:     user.Email,
		FirstName: first,
		LastName:  last,
		PhotoURL:  user.PhotoURL,
		UID:       user.UID,
	}

	var resp socialAuthResponse
	if err := c.postJSON(ctx, "/users/social-auth/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Access == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "exchange response carried no access token"}
	}

	return &portalauth.BackendSession{
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
		User:         resp.User,
		CreatedAt:    time.Now(),
	}, nil
}

// Login performs first-party email/password authentication.
func (c *PortalClient) Login(ctx context.Context, email, password string) (*portalauth.BackendSession, error) {
	req := map[string]string{"email": email, "password": password}

	var resp loginResponse
	if err := c.postJSON(ctx, "/auth/login/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "login response carried no token"}
	}

	return &portalauth.BackendSession{
		AccessToken: resp.Token,
		User:        resp.User,
		CreatedAt:   time.Now(),
	}, nil
}

// Register creates a first-party account and returns the backend's
// created-user confirmation.
func (c *PortalClient) Register(ctx context.Context, reg *portalauth.Registration) (map[string]any, error) {
	var resp map[string]any
	if err := c.postJSON(ctx, "/auth/register/", reg, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// postJSON runs one bounded POST round trip. Network failures come back
// wrapped (retryable by a fresh user attempt); backend rejections come back
// as *APIError.
func (c *PortalClient) postJSON(ctx context.Context, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("invalid response from backend: %w", err)
		}
	}
	return nil
}

// errorMessage digs the human-readable message out of a backend error body.
func errorMessage(data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		if msg, ok := body[key].(string); ok && msg != "" {
			return msg
		}
	}
	return ""
}

// SplitDisplayName splits a provider display name into first/last on the
// first whitespace, best effort: "Ann Lee" -> ("Ann", "Lee"), a single word
// becomes the first name, and an empty name yields two empty strings.
func SplitDisplayName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
