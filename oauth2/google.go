package oauth2

import (
	"context"
	"os"
	"strings"

	"github.com/hopebridge/portalauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// GoogleProvider adapts Google OAuth sign-in.
type GoogleProvider struct {
	*BaseProvider

	// VerifyIDToken, when set, is applied to the id_token Google returns
	// alongside the access token. A failure invalidates the whole attempt.
	VerifyIDToken func(ctx context.Context, idToken string) error
}

// NewGoogle builds the Google adapter. Empty arguments fall back to the
// OAUTH2_GOOGLE_CLIENT_ID / OAUTH2_GOOGLE_CLIENT_SECRET /
// OAUTH2_GOOGLE_CALLBACK_URL environment variables.
func NewGoogle(clientID, clientSecret, callbackURL string) *GoogleProvider {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET"))
	}
	if callbackURL == "" {
		callbackURL = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL"))
	}

	return &GoogleProvider{
		BaseProvider: &BaseProvider{
			provider: portalauth.ProviderGoogle,
			oauthConfig: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  callbackURL,
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
			// Always re-show the account chooser, matching the portal's
			// sign-in UX.
			authParams: []oauth2.AuthCodeOption{
				oauth2.SetAuthURLParam("prompt", "select_account"),
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
	}
}

// RequireVerifiedIDToken enables Google public-key validation of the ID
// token, with the client ID as the expected audience.
func (g *GoogleProvider) RequireVerifiedIDToken() *GoogleProvider {
	g.VerifyIDToken = func(ctx context.Context, idt string) error {
		_, err := idtoken.Validate(ctx, idt, g.oauthConfig.ClientID)
		return err
	}
	return g
}

// Complete runs the base flow and then, if configured, verifies the ID
// token before letting the outcome through.
func (g *GoogleProvider) Complete(ctx context.Context, cb portalauth.CallbackValues) (*portalauth.RawOutcome, error) {
	out, err := g.BaseProvider.Complete(ctx, cb)
	if err != nil || out.Err != nil || g.VerifyIDToken == nil {
		return out, err
	}

	idt, _ := out.Token.Extra("id_token").(string)
	if idt == "" {
		return out, nil
	}
	if verr := g.VerifyIDToken(ctx, idt); verr != nil {
		out.Token = nil
		out.UserInfo = nil
		out.Err = &portalauth.ProviderError{
			Code:    portalauth.CodeInvalidCredential,
			Message: "id token validation failed: " + verr.Error(),
		}
	}
	return out, nil
}
