package auth

import (
	"context"
	"fmt"
	"strings"
)

// Logger is the logging contract used across the module. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoggerProvider resolves named loggers.
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// SessionListener receives the provider identity every time the provider
// session changes. A nil identity means signed out.
type SessionListener func(identity *Identity)

// Unsubscribe releases a session subscription. Calling it more than once is
// a no-op.
type Unsubscribe func()

// IdentityProvider wraps the external identity service. Implementations
// must deliver SessionListener notifications in order, one at a time.
type IdentityProvider interface {
	Subscribe(listener SessionListener) (Unsubscribe, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
	Reload(ctx context.Context) (*Identity, error)
	SignInWithFederatedProvider(ctx context.Context) (*FederatedResult, error)
	CompleteFederatedSignIn(ctx context.Context, credential FederatedCredential) (*Identity, error)
	SignUpWithPassword(ctx context.Context, email, password string) (*Identity, error)
	SendEmailVerification(ctx context.Context) error
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	Reauthenticate(ctx context.Context, email, password string) error
	ChangeEmail(ctx context.Context, newEmail string) error
	ChangePassword(ctx context.Context, newPassword string) error
}

// UserStore is the backend record store for application users.
type UserStore interface {
	// CreateUser returns ErrConflict when a record for the subject exists.
	CreateUser(ctx context.Context, user NewApplicationUser) (*ApplicationUser, error)
	// GetUserBySubjectID returns ErrNotFound when no record exists.
	GetUserBySubjectID(ctx context.Context, subjectID string) (*ApplicationUser, error)
	SyncEmailVerification(ctx context.Context, subjectID string, verified bool) error
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args...) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args...) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args...) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args...) }

func (defLogger) print(level, msg string, args ...any) {
	fmt.Println("[" + level + "] AUTH " + msg + formatArgs(args))
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(args); i += 2 {
		b.WriteString(" ")
		if i+1 < len(args) {
			fmt.Fprintf(&b, "%v=%v", args[i], args[i+1])
			continue
		}
		fmt.Fprintf(&b, "%v", args[i])
	}
	return b.String()
}

// DefaultLogger returns the fallback stdout logger.
func DefaultLogger() Logger {
	return defLogger{}
}

// ResolveLogger returns the named logger from provider, the fallback when
// that is nil, and finally the default logger.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) Logger {
	if provider != nil {
		if lgr := provider.GetLogger(name); lgr != nil {
			return lgr
		}
	}
	if fallback != nil {
		return fallback
	}
	return defLogger{}
}
