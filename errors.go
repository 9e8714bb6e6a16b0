package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials   = goerrors.TextCodeInvalidCredentials
	TextCodeUnknownAccount       = "UNKNOWN_ACCOUNT"
	TextCodeUserCancelled        = "USER_CANCELLED"
	TextCodeWeakPassword         = "WEAK_PASSWORD"
	TextCodeEmailAlreadyInUse    = "EMAIL_ALREADY_IN_USE"
	TextCodeRequiresRecentLogin  = "REQUIRES_RECENT_LOGIN"
	TextCodeEmailNotVerified     = goerrors.TextCodeVerificationRequired
	TextCodeNotFound             = "NOT_FOUND"
	TextCodeConflict             = "CONFLICT"
	TextCodeBackendUnavailable   = "BACKEND_UNAVAILABLE"
	TextCodeTransitionInProgress = "TRANSITION_IN_PROGRESS"
	TextCodeInvalidTransition    = "INVALID_SESSION_TRANSITION"
	TextCodeNotSignedIn          = "NOT_SIGNED_IN"
	TextCodeOperationTimeout     = "OPERATION_TIMEOUT"
	TextCodeSubscriptionActive   = "SUBSCRIPTION_ACTIVE"
	TextCodeInvalidRole          = "INVALID_ROLE"
	TextCodeForbidden            = "FORBIDDEN"
	TextCodeControllerClosed     = "CONTROLLER_CLOSED"
)

// ErrInvalidCredentials the password did not match the account
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnknownAccount no account exists for the identifier
var ErrUnknownAccount = goerrors.New("unknown account", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnknownAccount).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserCancelled the user dismissed an interactive sign-in
var ErrUserCancelled = goerrors.New("sign-in cancelled by user", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserCancelled).
	WithCode(goerrors.CodeUnauthorized)

// ErrWeakPassword the provider rejected the password strength
var ErrWeakPassword = goerrors.New("password is too weak", goerrors.CategoryAuth).
	WithTextCode(TextCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailAlreadyInUse another account holds the email
var ErrEmailAlreadyInUse = goerrors.New("email already in use", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailAlreadyInUse).
	WithCode(goerrors.CodeConflict)

// ErrRequiresRecentLogin a sensitive change needs a fresh reauthentication
var ErrRequiresRecentLogin = goerrors.New("operation requires recent login", goerrors.CategoryAuth).
	WithTextCode(TextCodeRequiresRecentLogin).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailNotVerified password identity has not verified its email
var ErrEmailNotVerified = goerrors.New("email not verified", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(goerrors.CodeForbidden)

// ErrNotFound the backend has no record
var ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrConflict the backend already has a record
var ErrConflict = goerrors.New("record already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(goerrors.CodeConflict)

// ErrBackendUnavailable transport failure or server error, safe to retry
var ErrBackendUnavailable = goerrors.NewRetryableExternal("backend unavailable").
	WithTextCode(TextCodeBackendUnavailable)

// ErrTransitionInProgress another session transition is running
var ErrTransitionInProgress = goerrors.New("session transition in progress", goerrors.CategoryConflict).
	WithTextCode(TextCodeTransitionInProgress).
	WithCode(goerrors.CodeConflict)

// ErrInvalidTransition the operation is not valid in the current session state
var ErrInvalidTransition = goerrors.New("invalid session transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrNotSignedIn the operation requires a signed in session
var ErrNotSignedIn = goerrors.New("not signed in", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotSignedIn).
	WithCode(goerrors.CodeUnauthorized)

// ErrOperationTimeout the operation did not complete in time
var ErrOperationTimeout = goerrors.NewRetryableOperation("operation timed out").
	WithTextCode(TextCodeOperationTimeout).
	WithCode(goerrors.CodeRequestTimeout)

// ErrSubscriptionActive only one session subscription may be live
var ErrSubscriptionActive = goerrors.New("session subscription already active", goerrors.CategoryConflict).
	WithTextCode(TextCodeSubscriptionActive).
	WithCode(goerrors.CodeConflict)

// ErrInvalidRole the role is not one of the known roles
var ErrInvalidRole = goerrors.New("invalid role", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(goerrors.CodeBadRequest)

// ErrForbidden the signed in role may not perform the operation
var ErrForbidden = goerrors.New("forbidden", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrControllerClosed the session controller was closed
var ErrControllerClosed = goerrors.New("session controller closed", goerrors.CategoryOperation).
	WithTextCode(TextCodeControllerClosed)

var authRejected = []error{
	ErrInvalidCredentials,
	ErrUnknownAccount,
	ErrUserCancelled,
	ErrWeakPassword,
	ErrEmailAlreadyInUse,
	ErrRequiresRecentLogin,
	ErrEmailNotVerified,
}

// IsAuthRejected reports whether the identity provider refused the request.
func IsAuthRejected(err error) bool {
	for _, target := range authRejected {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is, or is categorized as, a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || goerrors.HasCategory(err, goerrors.CategoryNotFound)
}

// IsConflict reports whether err is a duplicate record error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether err carries input validation failures.
func IsValidation(err error) bool {
	return goerrors.HasCategory(err, goerrors.CategoryValidation)
}

// IsRetryable reports whether any error in the chain is marked retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrOperationTimeout) {
		return true
	}
	var r interface{ IsRetryable() bool }
	for err != nil {
		if errors.As(err, &r) && r.IsRetryable() {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
