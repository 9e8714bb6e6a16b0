package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// PasswordSessions is the subset of the Controller the password commands
// drive.
type PasswordSessions interface {
	SignInWithPassword(ctx context.Context, email, password string) error
	SignUpWithPassword(ctx context.Context, input SignUpInput) error
	SendPasswordReset(ctx context.Context, email string) error
	ChangeEmail(ctx context.Context, input ChangeEmailInput) error
	ChangePassword(ctx context.Context, input ChangePasswordInput) error
}

var _ PasswordSessions = (*Controller)(nil)

type RegisterUserMessage struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"confirm_password"`
	Role                 string `json:"role"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Input normalizes the message into the sign-up form.
func (e RegisterUserMessage) Input() SignUpInput {
	role := Role(strings.TrimSpace(e.Role))
	if parsed, err := ParseRole(e.Role); err == nil {
		role = parsed
	}
	return SignUpInput{
		Name:                 strings.TrimSpace(e.Name),
		Email:                strings.TrimSpace(e.Email),
		Password:             e.Password,
		PasswordConfirmation: e.PasswordConfirmation,
		Role:                 role,
	}
}

// Validate runs the sign-up form rules.
func (e RegisterUserMessage) Validate() error {
	return validationError(e.Input().Validate(), "invalid sign up form")
}

type RegisterUserHandler struct {
	sessions PasswordSessions
}

func NewRegisterUserHandler(sessions PasswordSessions) *RegisterUserHandler {
	return &RegisterUserHandler{sessions: sessions}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return h.sessions.SignUpWithPassword(ctx, event.Input())
}
