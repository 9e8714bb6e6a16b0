package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "user.password_reset" }

func (p InitializePasswordResetMessage) Validate() error {
	return validationError(PasswordResetInput{Email: strings.TrimSpace(p.Email)}.Validate(), "invalid password reset request")
}

// InitializePasswordResetResponse never reveals whether the account exists.
type InitializePasswordResetResponse struct {
	Email   string
	Success bool
}

type InitializePasswordResetHandler struct {
	sessions PasswordSessions
	logger   Logger
}

func NewInitializePasswordResetHandler(sessions PasswordSessions, logger Logger) *InitializePasswordResetHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &InitializePasswordResetHandler{sessions: sessions, logger: logger}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	email := strings.TrimSpace(event.Email)
	if err := h.sessions.SendPasswordReset(ctx, email); err != nil {
		h.logger.Error("password reset request failed", "error", err)
		var rich *goerrors.Error
		if goerrors.As(err, &rich) || IsRetryable(err) {
			return err
		}
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to request password reset")
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{Email: email, Success: true})
	}
	return nil
}
