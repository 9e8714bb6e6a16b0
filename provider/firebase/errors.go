package firebase

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/internal/rest"
)

const (
	TextCodeInvalidIDToken   = "FIREBASE_INVALID_ID_TOKEN"
	TextCodeTooManyAttempts  = "FIREBASE_TOO_MANY_ATTEMPTS"
	TextCodeInvalidRequest   = "FIREBASE_INVALID_REQUEST"
	TextCodeFederatedMissing = "FIREBASE_FEDERATED_NOT_CONFIGURED"
)

// ErrInvalidIDToken the ID token failed signature or claims checks
var ErrInvalidIDToken = goerrors.New("invalid firebase id token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidIDToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTooManyAttempts the project throttled the account
var ErrTooManyAttempts = goerrors.New("too many attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts).
	WithCode(goerrors.CodeTooManyRequests)

// ErrInvalidRequest the API rejected the request shape
var ErrInvalidRequest = goerrors.New("invalid identity request", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidRequest).
	WithCode(goerrors.CodeBadRequest)

// ErrFederatedNotConfigured no federated flow was wired into the provider
var ErrFederatedNotConfigured = goerrors.New("federated sign-in is not configured", goerrors.CategoryOperation).
	WithTextCode(TextCodeFederatedMissing)

var codeErrors = map[string]error{
	"EMAIL_NOT_FOUND":                auth.ErrUnknownAccount,
	"INVALID_PASSWORD":               auth.ErrInvalidCredentials,
	"INVALID_LOGIN_CREDENTIALS":      auth.ErrInvalidCredentials,
	"USER_DISABLED":                  auth.ErrInvalidCredentials,
	"INVALID_IDP_RESPONSE":           auth.ErrInvalidCredentials,
	"USER_MISMATCH":                  auth.ErrInvalidCredentials,
	"WEAK_PASSWORD":                  auth.ErrWeakPassword,
	"EMAIL_EXISTS":                   auth.ErrEmailAlreadyInUse,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": auth.ErrRequiresRecentLogin,
	"TOKEN_EXPIRED":                  auth.ErrRequiresRecentLogin,
	"INVALID_ID_TOKEN":               auth.ErrRequiresRecentLogin,
	"INVALID_REFRESH_TOKEN":          auth.ErrRequiresRecentLogin,
	"USER_NOT_FOUND":                 auth.ErrRequiresRecentLogin,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    ErrTooManyAttempts,
	"INVALID_EMAIL":                  ErrInvalidRequest,
	"MISSING_EMAIL":                  ErrInvalidRequest,
	"MISSING_PASSWORD":               ErrInvalidRequest,
}

// errorCode extracts the code from messages like
// "WEAK_PASSWORD : Password should be at least 6 characters".
func errorCode(message string) string {
	code, _, _ := strings.Cut(strings.TrimSpace(message), " ")
	return strings.TrimSuffix(code, ":")
}

func mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrBackendUnavailable) {
		return fmt.Errorf("firebase %s: %w", op, err)
	}
	if rest.IsUnavailable(err) {
		return fmt.Errorf("%w: firebase %s: %w", auth.ErrBackendUnavailable, op, err)
	}
	if sentinel, ok := codeErrors[errorCode(rest.Message(err))]; ok {
		return fmt.Errorf("%w: firebase %s: %w", sentinel, op, err)
	}
	return fmt.Errorf("firebase %s: %w", op, err)
}
