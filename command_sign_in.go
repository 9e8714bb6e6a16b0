package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const commandTimeout = 30 * time.Second

type SignInMessage struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e SignInMessage) Type() string { return "user.sign_in" }

func (e SignInMessage) Validate() error {
	return validationError(Credentials{Email: strings.TrimSpace(e.Email), Password: e.Password}.Validate(), "invalid sign in credentials")
}

type SignInHandler struct {
	sessions PasswordSessions
}

func NewSignInHandler(sessions PasswordSessions) *SignInHandler {
	return &SignInHandler{sessions: sessions}
}

func (h *SignInHandler) Execute(ctx context.Context, event SignInMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during sign in")
	default:
	}

	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return h.sessions.SignInWithPassword(ctx, strings.TrimSpace(event.Email), event.Password)
}
