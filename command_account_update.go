package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type ChangeEmailMessage struct {
	CurrentPassword string `json:"current_password"`
	NewEmail        string `json:"new_email"`
}

func (m ChangeEmailMessage) Type() string { return "user.change_email" }

func (m ChangeEmailMessage) Input() ChangeEmailInput {
	return ChangeEmailInput{CurrentPassword: m.CurrentPassword, NewEmail: strings.TrimSpace(m.NewEmail)}
}

type ChangePasswordMessage struct {
	CurrentPassword      string `json:"current_password"`
	NewPassword          string `json:"new_password"`
	PasswordConfirmation string `json:"confirm_password"`
}

func (m ChangePasswordMessage) Type() string { return "user.change_password" }

func (m ChangePasswordMessage) Input() ChangePasswordInput {
	return ChangePasswordInput{
		CurrentPassword:      m.CurrentPassword,
		NewPassword:          m.NewPassword,
		PasswordConfirmation: m.PasswordConfirmation,
	}
}

// AccountUpdateHandler handles credential changes for the signed in user.
type AccountUpdateHandler struct {
	sessions PasswordSessions
}

func NewAccountUpdateHandler(sessions PasswordSessions) *AccountUpdateHandler {
	return &AccountUpdateHandler{sessions: sessions}
}

func (h *AccountUpdateHandler) ChangeEmail(ctx context.Context, msg ChangeEmailMessage) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during email change")
	}

	input := msg.Input()
	if err := input.Validate(); err != nil {
		return validationError(err, "invalid change email form")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return h.sessions.ChangeEmail(ctx, input)
}

func (h *AccountUpdateHandler) ChangePassword(ctx context.Context, msg ChangePasswordMessage) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled during password change")
	}

	input := msg.Input()
	if err := input.Validate(); err != nil {
		return validationError(err, "invalid change password form")
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return h.sessions.ChangePassword(ctx, input)
}
