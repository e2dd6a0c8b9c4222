package portalauth

// NormalizedResult is the stable tuple Normalize extracts from a completed
// attempt: either a federated user plus the credential to exchange, or a
// tagged provider error. Exactly one side is populated.
type NormalizedResult struct {
	User       *FederatedUser
	Credential *ProviderCredential
	Err        *ProviderError
}

// Normalize converts a provider-shaped RawOutcome into a NormalizedResult.
// A nil outcome (nothing to process, e.g. no redirect pending) returns nil,
// which callers must treat as distinct from a failed attempt.
//
// Missing optional profile fields normalize to empty strings, never to a
// failure; only the absence of an access token makes the result an error,
// since there is then nothing to exchange.
func Normalize(raw *RawOutcome) *NormalizedResult {
	if raw == nil {
		return nil
	}
	if raw.Err != nil {
		return &NormalizedResult{Err: raw.Err}
	}

	if raw.Token == nil || raw.Token.AccessToken == "" {
		return &NormalizedResult{Err: &ProviderError{
			Code:    CodeInvalidCredential,
			Message: "provider returned no access token",
		}}
	}

	user := extractUser(raw.Provider, raw.UserInfo)

	cred := &ProviderCredential{
		Provider:    raw.Provider,
		AccessToken: raw.Token.AccessToken,
	}
	if idt, ok := raw.Token.Extra("id_token").(string); ok {
		cred.IDToken = idt
	}

	return &NormalizedResult{User: user, Credential: cred}
}

// extractUser pulls the profile fields out of the provider's own response
// shape. Google returns a flat object ("id"/"sub", "email", "name",
// "picture"); Facebook's Graph API nests the photo under picture.data.url.
func extractUser(provider Provider, info map[string]any) *FederatedUser {
	user := &FederatedUser{ProviderID: string(provider) + ".com"}
	if info == nil {
		return user
	}

	user.UID = stringField(info, "id")
	if user.UID == "" {
		user.UID = stringField(info, "sub")
	}
	user.Email = stringField(info, "email")
	user.DisplayName = stringField(info, "name")

	switch provider {
	case ProviderFacebook:
		if picture, ok := info["picture"].(map[string]any); ok {
			if data, ok := picture["data"].(map[string]any); ok {
				user.PhotoURL = stringField(data, "url")
			}
		}
	default:
		user.PhotoURL = stringField(info, "picture")
	}

	return user
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
