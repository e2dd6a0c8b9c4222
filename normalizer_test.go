package portalauth

import (
	"testing"

	"golang.org/x/oauth2"
)

func tokenWithID(access, idToken string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: access}
	if idToken != "" {
		tok = tok.WithExtra(map[string]any{"id_token": idToken})
	}
	return tok
}

func TestNormalizeNilOutcome(t *testing.T) {
	if got := Normalize(nil); got != nil {
		t.Errorf("Normalize(nil) = %+v, want nil", got)
	}
}

func TestNormalizeGoogleProfile(t *testing.T) {
	result := Normalize(&RawOutcome{
		Provider: ProviderGoogle,
		Token:    tokenWithID("ya29.access", "header.payload.sig"),
		UserInfo: map[string]any{
			"id":      "108234",
			"email":   "ann@example.org",
			"name":    "Ann Lee",
			"picture": "https://lh3.example.com/photo.jpg",
		},
	})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	user := result.User
	if user.UID != "108234" || user.Email != "ann@example.org" || user.DisplayName != "Ann Lee" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.PhotoURL != "https://lh3.example.com/photo.jpg" {
		t.Errorf("PhotoURL = %q", user.PhotoURL)
	}
	if user.ProviderID != "google.com" {
		t.Errorf("ProviderID = %q, want google.com", user.ProviderID)
	}
	if result.Credential.AccessToken != "ya29.access" {
		t.Errorf("AccessToken = %q", result.Credential.AccessToken)
	}
	if result.Credential.IDToken != "header.payload.sig" {
		t.Errorf("IDToken = %q", result.Credential.IDToken)
	}
}

func TestNormalizeGoogleSubFallback(t *testing.T) {
	result := Normalize(&RawOutcome{
		Provider: ProviderGoogle,
		Token:    tokenWithID("tok", ""),
		UserInfo: map[string]any{"sub": "sub-42"},
	})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.User.UID != "sub-42" {
		t.Errorf("UID = %q, want sub claim fallback", result.User.UID)
	}
}

func TestNormalizeFacebookNestedPicture(t *testing.T) {
	result := Normalize(&RawOutcome{
		Provider: ProviderFacebook,
		Token:    tokenWithID("fb-access", ""),
		UserInfo: map[string]any{
			"id":    "99001",
			"name":  "Ann Lee",
			"email": "ann@example.org",
			"picture": map[string]any{
				"data": map[string]any{
					"url": "https://graph.example.com/99001/picture",
				},
			},
		},
	})
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.User.PhotoURL != "https://graph.example.com/99001/picture" {
		t.Errorf("PhotoURL = %q, want the nested picture URL", result.User.PhotoURL)
	}
	if result.User.ProviderID != "facebook.com" {
		t.Errorf("ProviderID = %q, want facebook.com", result.User.ProviderID)
	}
}

func TestNormalizeMissingProfileFields(t *testing.T) {
	result := Normalize(&RawOutcome{
		Provider: ProviderFacebook,
		Token:    tokenWithID("fb-access", ""),
		UserInfo: map[string]any{"id": "42", "picture": "not-a-map"},
	})
	if result.Err != nil {
		t.Fatalf("missing fields must not fail: %v", result.Err)
	}
	if result.User.Email != "" || result.User.DisplayName != "" || result.User.PhotoURL != "" {
		t.Errorf("missing fields should be empty, got %+v", result.User)
	}
}

func TestNormalizeMissingAccessToken(t *testing.T) {
	for _, raw := range []*RawOutcome{
		{Provider: ProviderGoogle},
		{Provider: ProviderGoogle, Token: &oauth2.Token{}},
	} {
		result := Normalize(raw)
		if result.Err == nil {
			t.Fatalf("expected an error for outcome %+v", raw)
		}
		if result.Err.Code != CodeInvalidCredential {
			t.Errorf("Code = %q, want %q", result.Err.Code, CodeInvalidCredential)
		}
	}
}

func TestNormalizeProviderErrorPassthrough(t *testing.T) {
	pe := &ProviderError{Code: CodePopupClosed}
	result := Normalize(&RawOutcome{Provider: ProviderGoogle, Err: pe})
	if result.Err != pe {
		t.Errorf("Err = %+v, want the original provider error", result.Err)
	}
	if result.User != nil || result.Credential != nil {
		t.Errorf("failed outcome must not carry user or credential")
	}
}
