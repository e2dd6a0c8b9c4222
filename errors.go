package portalauth

import (
	"fmt"
	"strings"
)

// ErrorCategory is the closed set of user-facing failure categories. Raw
// provider error codes never cross into the UI layer; they are translated
// here first.
type ErrorCategory string

const (
	CategoryUserCancelled   ErrorCategory = "USER_CANCELLED"
	CategoryPopupBlocked    ErrorCategory = "POPUP_BLOCKED"
	CategoryAccountConflict ErrorCategory = "ACCOUNT_CONFLICT"
	CategoryConfigError     ErrorCategory = "CONFIG_ERROR"
	CategoryExchangeFailed  ErrorCategory = "EXCHANGE_FAILED"
	CategoryNetworkError    ErrorCategory = "NETWORK_ERROR"
	CategoryUnknown         ErrorCategory = "UNKNOWN"
)

// ProviderError is the tagged variant an adapter produces when a sign-in
// attempt fails at the provider. Code is the provider's stringly error code;
// nothing outside this file should pattern-match on it.
type ProviderError struct {
	Code    string
	Message string
	Email   string // set for account-conflict errors when the provider supplies it
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// NormalizedError is what the UI layer receives for every terminal failure.
type NormalizedError struct {
	Category   ErrorCategory
	Message    string // human-readable, distinct per category/code
	RawCode    string
	RawMessage string
	Email      string // for ACCOUNT_CONFLICT: the conflicting email, when known
}

func (e *NormalizedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Provider error codes the translator recognizes. The kebab-case codes are
// what adapters emit for browser-level failures; the snake_case ones are
// standard OAuth authorization-endpoint errors passed through unchanged.
const (
	CodeAccountConflict     = "account-exists-with-different-credential"
	CodePopupClosed         = "popup-closed-by-user"
	CodePopupCancelled      = "cancelled-popup-request"
	CodePopupBlocked        = "popup-blocked"
	CodeUnauthorizedDomain  = "unauthorized-domain"
	CodeOperationNotAllowed = "operation-not-allowed"
	CodeNetworkFailure      = "network-request-failed"
	CodeInvalidCredential   = "invalid-credential"
)

var categoryByCode = map[string]ErrorCategory{
	CodeAccountConflict:     CategoryAccountConflict,
	CodePopupClosed:         CategoryUserCancelled,
	CodePopupCancelled:      CategoryUserCancelled,
	CodePopupBlocked:        CategoryPopupBlocked,
	CodeUnauthorizedDomain:  CategoryConfigError,
	CodeOperationNotAllowed: CategoryConfigError,
	CodeNetworkFailure:      CategoryNetworkError,

	// OAuth authorization endpoint errors.
	"access_denied":         CategoryUserCancelled,
	"redirect_uri_mismatch": CategoryConfigError,
	"unauthorized_client":   CategoryConfigError,
	"invalid_scope":         CategoryConfigError,
	"server_error":          CategoryUnknown,
}

var messageByCode = map[string]string{
	CodeAccountConflict:     "An account already exists with the same email address but different sign-in credentials. Sign in using a provider associated with this email address.",
	CodePopupClosed:         "The authentication popup was closed before completing the sign-in.",
	CodePopupCancelled:      "The authentication popup was closed before completing the sign-in.",
	CodePopupBlocked:        "The authentication popup was blocked by the browser. Please enable popups for this site.",
	CodeUnauthorizedDomain:  "This domain is not authorized for OAuth operations.",
	CodeOperationNotAllowed: "This operation is not allowed. Contact support.",
}

var messageByCategory = map[ErrorCategory]string{
	CategoryUserCancelled:   "The sign-in was cancelled before completing.",
	CategoryPopupBlocked:    "The authentication popup was blocked by the browser. Please enable popups for this site.",
	CategoryAccountConflict: messageByCode[CodeAccountConflict],
	CategoryConfigError:     "Sign-in is misconfigured for this site. Contact support.",
	CategoryExchangeFailed:  "Could not sign you in right now. Please try again.",
	CategoryNetworkError:    "A network error occurred. Check your connection and try again.",
	CategoryUnknown:         "Authentication failed. Please try again.",
}

// Translate maps a provider error code onto a user-facing category and
// message. It is total: any string, including ones it has never seen,
// produces a valid NormalizedError. A leading "auth/" prefix (as emitted by
// some provider SDKs) is stripped before lookup.
func Translate(code string) *NormalizedError {
	normalized := strings.TrimPrefix(strings.TrimSpace(code), "auth/")

	category, ok := categoryByCode[normalized]
	if !ok {
		category = CategoryUnknown
	}

	message, ok := messageByCode[normalized]
	if !ok {
		message = messageByCategory[category]
	}

	return &NormalizedError{
		Category: category,
		Message:  message,
		RawCode:  code,
	}
}

// TranslateProviderError translates a tagged adapter error, carrying along
// the raw message and (for account conflicts) the conflicting email.
func TranslateProviderError(pe *ProviderError) *NormalizedError {
	ne := Translate(pe.Code)
	ne.RawMessage = pe.Message
	if ne.Category == CategoryAccountConflict {
		ne.Email = pe.Email
	}
	return ne
}
