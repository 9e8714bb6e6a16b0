package firebase

import (
	"context"
	"sync"
	"time"

	auth "github.com/goliatone/go-restaurant-auth"
)

// Session is the provider side sign-in: who is signed in and the tokens
// that keep them signed in.
type Session struct {
	SubjectID      string              `json:"uid"`
	Email          string              `json:"email"`
	DisplayName    string              `json:"display_name,omitempty"`
	EmailVerified  bool                `json:"email_verified"`
	SignInProvider auth.SignInProvider `json:"sign_in_provider"`
	IDToken        string              `json:"id_token"`
	RefreshToken   string              `json:"refresh_token"`
	ExpiresAt      time.Time           `json:"expires_at"`
}

// Identity is the read-only view handed to listeners.
func (s *Session) Identity() *auth.Identity {
	if s == nil {
		return nil
	}
	return &auth.Identity{
		SubjectID:      s.SubjectID,
		Email:          s.Email,
		DisplayName:    s.DisplayName,
		EmailVerified:  s.EmailVerified,
		SignInProvider: s.SignInProvider,
	}
}

// Clone returns a copy safe to hand out.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func (s *Session) expiresWithin(now time.Time, margin time.Duration) bool {
	return s.ExpiresAt.IsZero() || !now.Add(margin).Before(s.ExpiresAt)
}

// SessionPersistence keeps the session across process restarts.
type SessionPersistence interface {
	// Load returns nil, nil when nothing is stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Clear(ctx context.Context) error
}

// MemoryPersistence keeps the session for the life of the process.
type MemoryPersistence struct {
	mu      sync.Mutex
	session *Session
}

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

func (m *MemoryPersistence) Load(context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone(), nil
}

func (m *MemoryPersistence) Save(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session.Clone()
	return nil
}

func (m *MemoryPersistence) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}
