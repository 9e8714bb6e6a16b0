package firebase_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/provider/firebase"
	"github.com/goliatone/go-restaurant-auth/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []*auth.Identity
}

func (r *recorder) listen(identity *auth.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, identity)
}

func (r *recorder) all() []*auth.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*auth.Identity(nil), r.events...)
}

type fakeFederated struct {
	*social.EncryptedStateManager
	token   *social.Token
	err     error
	sealErr error
}

func (f *fakeFederated) ProviderID() string { return "google.com" }

func (f *fakeFederated) Seal(token *social.Token) (string, error) {
	if f.sealErr != nil {
		return "", f.sealErr
	}
	return f.EncryptedStateManager.Seal(token)
}

func (f *fakeFederated) SignIn(context.Context) (*social.Token, error) {
	return f.token, f.err
}

type fixture struct {
	service     *identityService
	provider    *firebase.Provider
	persistence *firebase.MemoryPersistence
	clock       *time.Time
}

func newFixture(t *testing.T, opts ...firebase.Option) *fixture {
	t.Helper()

	service := newIdentityService(t)
	srv := httptest.NewServer(service)
	t.Cleanup(srv.Close)

	cfg := service.config(srv)
	now := time.Now()
	f := &fixture{
		service:     service,
		persistence: firebase.NewMemoryPersistence(),
		clock:       &now,
	}

	base := []firebase.Option{
		firebase.WithTokenVerifier(service.verifier(cfg)),
		firebase.WithPersistence(f.persistence),
		firebase.WithClock(func() time.Time { return *f.clock }),
	}
	provider, err := firebase.New(cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(provider.Close)
	f.provider = provider
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := firebase.New(firebase.Config{ProjectID: testProject})
	require.Error(t, err)
	assert.True(t, goerrors.HasCategory(err, goerrors.CategoryValidation))
}

func TestSignInWithPasswordNotifiesListener(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1", displayName: "Ana", verified: true})

	rec := &recorder{}
	unsubscribe, err := f.provider.Subscribe(rec.listen)
	require.NoError(t, err)
	defer unsubscribe()

	identity, err := f.provider.SignInWithPassword(context.Background(), " ana@example.com ", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "uid-1", identity.SubjectID)
	assert.Equal(t, "ana@example.com", identity.Email)
	assert.Equal(t, "Ana", identity.DisplayName)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, auth.ProviderPassword, identity.SignInProvider)

	events := rec.all()
	require.Len(t, events, 2)
	assert.Nil(t, events[0], "subscribe delivers the signed out state first")
	assert.Equal(t, "uid-1", events[1].SubjectID)

	stored, err := f.persistence.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "refresh-uid-1", stored.RefreshToken)
}

func TestSignInWithPasswordMapsErrors(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1"})

	_, err := f.provider.SignInWithPassword(context.Background(), "ana@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = f.provider.SignInWithPassword(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrUnknownAccount)

	assert.Nil(t, f.provider.CurrentIdentity())
}

func TestSignUpWithPassword(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "taken@example.com", password: "secret1"})

	_, err := f.provider.SignUpWithPassword(context.Background(), "taken@example.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrEmailAlreadyInUse)

	_, err = f.provider.SignUpWithPassword(context.Background(), "new@example.com", "abc")
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	identity, err := f.provider.SignUpWithPassword(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", identity.Email)
	assert.False(t, identity.EmailVerified)

	require.NoError(t, f.provider.SendEmailVerification(context.Background()))
	require.Len(t, f.service.oob, 1)
	assert.Equal(t, "VERIFY_EMAIL", f.service.oob[0]["requestType"])
}

func TestSubscribeAllowsOneListener(t *testing.T) {
	f := newFixture(t)

	rec := &recorder{}
	unsubscribe, err := f.provider.Subscribe(rec.listen)
	require.NoError(t, err)

	_, err = f.provider.Subscribe(rec.listen)
	assert.ErrorIs(t, err, auth.ErrSubscriptionActive)

	unsubscribe()
	unsubscribe()

	again, err := f.provider.Subscribe(rec.listen)
	require.NoError(t, err)
	again()
}

func TestSignOutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1"})

	rec := &recorder{}
	unsubscribe, err := f.provider.Subscribe(rec.listen)
	require.NoError(t, err)
	defer unsubscribe()

	_, err = f.provider.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.provider.SignOut(context.Background()))
	require.NoError(t, f.provider.SignOut(context.Background()))

	events := rec.all()
	require.Len(t, events, 3)
	assert.Nil(t, events[2])

	stored, err := f.persistence.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)

	assert.ErrorIs(t, f.provider.SendEmailVerification(context.Background()), auth.ErrNotSignedIn)
}

func TestRestoreRefreshesPersistedSession(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1", verified: true})

	require.NoError(t, f.persistence.Save(context.Background(), &firebase.Session{
		SubjectID:    "uid-1",
		Email:        "old@example.com",
		RefreshToken: "refresh-uid-1",
	}))

	require.NoError(t, f.provider.Restore(context.Background()))
	assert.Equal(t, 1, f.service.callCount("token"))

	rec := &recorder{}
	unsubscribe, err := f.provider.Subscribe(rec.listen)
	require.NoError(t, err)
	defer unsubscribe()

	events := rec.all()
	require.Len(t, events, 1)
	require.NotNil(t, events[0])
	assert.Equal(t, "uid-1", events[0].SubjectID)
	assert.Equal(t, "ana@example.com", events[0].Email, "profile comes from lookup")
	assert.True(t, events[0].EmailVerified)
}

func TestRestoreDiscardsRejectedSession(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.persistence.Save(context.Background(), &firebase.Session{
		SubjectID:    "uid-gone",
		RefreshToken: "refresh-uid-gone",
	}))

	require.NoError(t, f.provider.Restore(context.Background()))
	assert.Nil(t, f.provider.CurrentIdentity())

	stored, err := f.persistence.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSensitiveChangesRequireRecentLogin(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1"})

	_, err := f.provider.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)

	f.advance(auth.RecentLoginWindow + time.Minute)
	err = f.provider.ChangePassword(context.Background(), "secret2")
	assert.ErrorIs(t, err, auth.ErrRequiresRecentLogin)
	assert.Equal(t, 0, f.service.callCount("update"))

	err = f.provider.Reauthenticate(context.Background(), "ana@example.com", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	require.NoError(t, f.provider.Reauthenticate(context.Background(), "ana@example.com", "secret1"))
	require.NoError(t, f.provider.ChangePassword(context.Background(), "secret2"))
	assert.Equal(t, "secret2", f.service.password("uid-1"))
}

func TestReauthenticateRejectsOtherAccount(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1"})
	f.service.add(&account{uid: "uid-2", email: "bo@example.com", password: "secret2"})

	_, err := f.provider.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)

	err = f.provider.Reauthenticate(context.Background(), "bo@example.com", "secret2")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Equal(t, "uid-1", f.provider.CurrentIdentity().SubjectID)
}

func TestChangeEmailMarksUnverified(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1", verified: true})

	rec := &recorder{}
	unsubscribe, err := f.provider.Subscribe(rec.listen)
	require.NoError(t, err)
	defer unsubscribe()

	_, err = f.provider.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.provider.ChangeEmail(context.Background(), "ana@new.example.com"))

	current := f.provider.CurrentIdentity()
	assert.Equal(t, "ana@new.example.com", current.Email)
	assert.False(t, current.EmailVerified)
	assert.Len(t, rec.all(), 2, "profile changes do not notify")

	reloaded, err := f.provider.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana@new.example.com", reloaded.Email)
}

func TestSendPasswordResetHidesUnknownAccounts(t *testing.T) {
	f := newFixture(t)
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1"})

	require.NoError(t, f.provider.SendPasswordReset(context.Background(), "nobody@example.com"))
	require.NoError(t, f.provider.SendPasswordReset(context.Background(), "ana@example.com"))

	require.Len(t, f.service.oob, 1)
	assert.Equal(t, "PASSWORD_RESET", f.service.oob[0]["requestType"])
	assert.Equal(t, "ana@example.com", f.service.oob[0]["email"])
}

func TestActiveSessionRefreshesNearExpiry(t *testing.T) {
	f := newFixture(t)
	f.service.expiresIn = 30
	f.service.add(&account{uid: "uid-1", email: "ana@example.com", password: "secret1"})

	_, err := f.provider.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.service.callCount("token"))

	require.NoError(t, f.provider.SendEmailVerification(context.Background()))
	assert.Equal(t, 1, f.service.callCount("token"))
	require.Len(t, f.service.oob, 1)
	assert.Equal(t, f.service.lastIDTok, f.service.oob[0]["idToken"])
}

func TestBackendUnavailable(t *testing.T) {
	f := newFixture(t)
	f.service.unavailable = true

	_, err := f.provider.SignInWithPassword(context.Background(), "ana@example.com", "secret1")
	assert.ErrorIs(t, err, auth.ErrBackendUnavailable)
}

func TestFederatedSignInSealsCredential(t *testing.T) {
	states, err := social.NewEncryptedStateManagerFromSecret([]byte("a-test-secret-of-enough-length"), time.Minute)
	require.NoError(t, err)

	federated := &fakeFederated{
		EncryptedStateManager: states,
		token:                 &social.Token{Provider: "google.com", IDToken: "google-id-token"},
	}
	f := newFixture(t, firebase.WithFederated(federated))

	result, err := f.provider.SignInWithFederatedProvider(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Identity)
	assert.Equal(t, "uid-google", result.Identity.SubjectID)
	assert.Equal(t, auth.ProviderGoogle, result.Identity.SignInProvider)
	assert.Equal(t, "Chef", result.Identity.DisplayName)
	assert.NotEmpty(t, result.Credential)

	require.NoError(t, f.provider.SignOut(context.Background()))

	identity, err := f.provider.CompleteFederatedSignIn(context.Background(), result.Credential)
	require.NoError(t, err)
	assert.Equal(t, "uid-google", identity.SubjectID)
	assert.Equal(t, 2, f.service.callCount("signInWithIdp"))

	_, err = f.provider.CompleteFederatedSignIn(context.Background(), "not-a-credential")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestFederatedSignInPropagatesCancellation(t *testing.T) {
	states, err := social.NewEncryptedStateManagerFromSecret([]byte("a-test-secret-of-enough-length"), time.Minute)
	require.NoError(t, err)

	federated := &fakeFederated{EncryptedStateManager: states, err: auth.ErrUserCancelled}
	f := newFixture(t, firebase.WithFederated(federated))

	_, err = f.provider.SignInWithFederatedProvider(context.Background())
	assert.ErrorIs(t, err, auth.ErrUserCancelled)
	assert.Equal(t, 0, f.service.callCount("signInWithIdp"))
}

func TestFederatedSignInSealFailureLeavesNoSession(t *testing.T) {
	states, err := social.NewEncryptedStateManagerFromSecret([]byte("a-test-secret-of-enough-length"), time.Minute)
	require.NoError(t, err)

	sealErr := errors.New("sealing failed")
	federated := &fakeFederated{
		EncryptedStateManager: states,
		token:                 &social.Token{Provider: "google.com", IDToken: "google-id-token"},
		sealErr:               sealErr,
	}
	f := newFixture(t, firebase.WithFederated(federated))

	_, err = f.provider.SignInWithFederatedProvider(context.Background())
	assert.ErrorIs(t, err, sealErr)
	assert.Nil(t, f.provider.CurrentIdentity())
	assert.Equal(t, 0, f.service.callCount("signInWithIdp"))

	stored, err := f.persistence.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestFederatedSignInNotConfigured(t *testing.T) {
	f := newFixture(t)

	_, err := f.provider.SignInWithFederatedProvider(context.Background())
	assert.True(t, errors.Is(err, firebase.ErrFederatedNotConfigured))
}
