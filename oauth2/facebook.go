package oauth2

import (
	"os"
	"strings"

	"github.com/hopebridge/portalauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

// FacebookProvider adapts Facebook OAuth sign-in.
type FacebookProvider struct {
	*BaseProvider
}

// NewFacebook builds the Facebook adapter. Empty arguments fall back to the
// OAUTH2_FACEBOOK_CLIENT_ID / OAUTH2_FACEBOOK_CLIENT_SECRET /
// OAUTH2_FACEBOOK_CALLBACK_URL environment variables.
func NewFacebook(clientID, clientSecret, callbackURL string) *FacebookProvider {
	if clientID == "" {
		clientID = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CLIENT_SECRET"))
	}
	if callbackURL == "" {
		callbackURL = strings.TrimSpace(os.Getenv("OAUTH2_FACEBOOK_CALLBACK_URL"))
	}

	return &FacebookProvider{
		BaseProvider: &BaseProvider{
			provider: portalauth.ProviderFacebook,
			oauthConfig: oauth2.Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				RedirectURL:  callbackURL,
				Scopes:       []string{"email", "public_profile"},
				Endpoint:     facebook.Endpoint,
			},
			// display=popup keeps the dialog compact in the popup window;
			// auth_type=rerequest re-asks for declined permissions such as
			// email.
			authParams: []oauth2.AuthCodeOption{
				oauth2.SetAuthURLParam("display", "popup"),
				oauth2.SetAuthURLParam("auth_type", "rerequest"),
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture",
		},
	}
}
