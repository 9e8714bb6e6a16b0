package auth_test

import (
	"errors"
	"fmt"
	"testing"

	auth "github.com/goliatone/go-restaurant-auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestIsAuthRejected(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "invalid credentials", err: auth.ErrInvalidCredentials, expected: true},
		{name: "wrapped weak password", err: fmt.Errorf("%w: WEAK_PASSWORD", auth.ErrWeakPassword), expected: true},
		{name: "recent login", err: auth.ErrRequiresRecentLogin, expected: true},
		{name: "backend unavailable", err: auth.ErrBackendUnavailable, expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "nil", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.IsAuthRejected(tt.err))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, auth.IsNotFound(auth.ErrNotFound))
	assert.True(t, auth.IsNotFound(fmt.Errorf("lookup uid-1: %w", auth.ErrNotFound)))
	assert.True(t, auth.IsNotFound(goerrors.New("user missing", goerrors.CategoryNotFound)))
	assert.False(t, auth.IsNotFound(auth.ErrConflict))
	assert.False(t, auth.IsNotFound(nil))
}

func TestIsConflict(t *testing.T) {
	assert.True(t, auth.IsConflict(fmt.Errorf("create: %w", auth.ErrConflict)))
	assert.False(t, auth.IsConflict(auth.ErrNotFound))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, auth.IsRetryable(auth.ErrBackendUnavailable))
	assert.True(t, auth.IsRetryable(fmt.Errorf("%w: %w", auth.ErrOperationTimeout, errors.New("deadline"))))
	assert.False(t, auth.IsRetryable(auth.ErrInvalidCredentials))
	assert.False(t, auth.IsRetryable(nil))
}

func TestSentinelsKeepIdentityWhenWrapped(t *testing.T) {
	wrapped := fmt.Errorf("%w: INVALID_PASSWORD: %w", auth.ErrInvalidCredentials, errors.New("remote said no"))

	assert.ErrorIs(t, wrapped, auth.ErrInvalidCredentials)
	assert.NotErrorIs(t, wrapped, auth.ErrUnknownAccount)
	assert.True(t, goerrors.HasCategory(wrapped, goerrors.CategoryAuth))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, auth.IsValidation(auth.RegisterUserMessage{}.Validate()))
	assert.True(t, auth.IsValidation(auth.ErrInvalidTransition))
	assert.False(t, auth.IsValidation(auth.ErrNotFound))
}
