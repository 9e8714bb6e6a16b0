package auth_test

import (
	"context"
	"sync"

	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock

	mu       sync.Mutex
	listener auth.SessionListener
}

func (m *MockIdentityProvider) Subscribe(listener auth.SessionListener) (auth.Unsubscribe, error) {
	args := m.Called(listener)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.listener = listener
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.listener = nil
		m.mu.Unlock()
	}, nil
}

// Notify delivers identity to the subscribed listener, if any.
func (m *MockIdentityProvider) Notify(identity *auth.Identity) {
	m.mu.Lock()
	listener := m.listener
	m.mu.Unlock()
	if listener != nil {
		listener(identity)
	}
}

func (m *MockIdentityProvider) Subscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listener != nil
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Identity, error) {
	args := m.Called(ctx, email, password)
	return identityArg(args, 0), args.Error(1)
}

func (m *MockIdentityProvider) Reload(ctx context.Context) (*auth.Identity, error) {
	args := m.Called(ctx)
	return identityArg(args, 0), args.Error(1)
}

func (m *MockIdentityProvider) SignInWithFederatedProvider(ctx context.Context) (*auth.FederatedResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*auth.FederatedResult)
	return result, args.Error(1)
}

func (m *MockIdentityProvider) CompleteFederatedSignIn(ctx context.Context, credential auth.FederatedCredential) (*auth.Identity, error) {
	args := m.Called(ctx, credential)
	return identityArg(args, 0), args.Error(1)
}

func (m *MockIdentityProvider) SignUpWithPassword(ctx context.Context, email, password string) (*auth.Identity, error) {
	args := m.Called(ctx, email, password)
	return identityArg(args, 0), args.Error(1)
}

func (m *MockIdentityProvider) SendEmailVerification(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockIdentityProvider) Reauthenticate(ctx context.Context, email, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

func (m *MockIdentityProvider) ChangeEmail(ctx context.Context, newEmail string) error {
	return m.Called(ctx, newEmail).Error(0)
}

func (m *MockIdentityProvider) ChangePassword(ctx context.Context, newPassword string) error {
	return m.Called(ctx, newPassword).Error(0)
}

// MockUserStore implements auth.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, user auth.NewApplicationUser) (*auth.ApplicationUser, error) {
	args := m.Called(ctx, user)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserStore) GetUserBySubjectID(ctx context.Context, subjectID string) (*auth.ApplicationUser, error) {
	args := m.Called(ctx, subjectID)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserStore) SyncEmailVerification(ctx context.Context, subjectID string, verified bool) error {
	return m.Called(ctx, subjectID, verified).Error(0)
}

// MockPasswordSessions implements auth.PasswordSessions
type MockPasswordSessions struct {
	mock.Mock
}

func (m *MockPasswordSessions) SignInWithPassword(ctx context.Context, email, password string) error {
	return m.Called(ctx, email, password).Error(0)
}

func (m *MockPasswordSessions) SignUpWithPassword(ctx context.Context, input auth.SignUpInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *MockPasswordSessions) SendPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockPasswordSessions) ChangeEmail(ctx context.Context, input auth.ChangeEmailInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *MockPasswordSessions) ChangePassword(ctx context.Context, input auth.ChangePasswordInput) error {
	return m.Called(ctx, input).Error(0)
}

// recordingSink collects activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func identityArg(args mock.Arguments, i int) *auth.Identity {
	v, _ := args.Get(i).(*auth.Identity)
	return v
}

func userArg(args mock.Arguments, i int) *auth.ApplicationUser {
	v, _ := args.Get(i).(*auth.ApplicationUser)
	return v
}
