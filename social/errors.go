package social

import "github.com/goliatone/go-errors"

const (
	TextCodeInvalidState      = "social_invalid_state"
	TextCodeStateExpired      = "social_state_expired"
	TextCodeTokenExchangeFail = "social_token_exchange_failed"
	TextCodeConsentFailed     = "social_consent_failed"
	TextCodeInvalidCredential = "social_invalid_credential"
	TextCodeCredentialExpired = "social_credential_expired"
	TextCodeInvalidSecret     = "social_invalid_secret"
)

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrTokenExchangeFailed is returned when a provider token exchange fails.
var ErrTokenExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExchangeFail).
	WithCode(errors.CodeUnauthorized)

// ErrConsentFailed the provider reported an error other than a denial.
var ErrConsentFailed = errors.New("consent failed", errors.CategoryAuth).
	WithTextCode(TextCodeConsentFailed).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredential a sealed federated credential could not be opened.
var ErrInvalidCredential = errors.New("invalid federated credential", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredential).
	WithCode(errors.CodeUnauthorized)

// ErrCredentialExpired a sealed federated credential is past its lifetime.
var ErrCredentialExpired = errors.New("federated credential expired", errors.CategoryAuth).
	WithTextCode(TextCodeCredentialExpired).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidSecret the configured sealing secret is unusable.
var ErrInvalidSecret = errors.New("invalid sealing secret", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidSecret).
	WithCode(errors.CodeBadRequest)
