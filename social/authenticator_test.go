package social_test

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentLogger struct{}

func (silentLogger) Debug(string, ...any) {}
func (silentLogger) Info(string, ...any)  {}
func (silentLogger) Warn(string, ...any)  {}
func (silentLogger) Error(string, ...any) {}

// fakeProvider checks PKCE the way a real authorization server would.
type fakeProvider struct {
	challenges map[string]string
}

func (p *fakeProvider) Name() string       { return "fake" }
func (p *fakeProvider) ProviderID() string { return "fake.com" }

func (p *fakeProvider) AuthCodeURL(state string, opts ...social.AuthCodeOption) string {
	cfg := social.ApplyAuthCodeOptions(nil, opts...)
	p.challenges[state] = cfg.CodeChallenge
	return "https://consent.example/auth?" + url.Values{
		"state":        {state},
		"redirect_uri": {cfg.RedirectURI},
	}.Encode()
}

func (p *fakeProvider) Exchange(_ context.Context, code string, opts ...social.ExchangeOption) (*social.Token, error) {
	cfg := social.ApplyExchangeOptions(opts...)
	sum := sha256.Sum256([]byte(cfg.CodeVerifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	for _, c := range p.challenges {
		if c == challenge {
			return &social.Token{IDToken: "id-for-" + code, AccessToken: "access"}, nil
		}
	}
	return nil, &social.ProviderError{Provider: "fake", Operation: "exchange", Code: "invalid_grant"}
}

// browser simulates the user acting on the consent page.
func browser(t *testing.T, query func(state string) url.Values) social.Opener {
	return func(_ context.Context, raw string) error {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		redirect := u.Query().Get("redirect_uri")
		params := query(u.Query().Get("state"))
		go func() {
			resp, err := http.Get(redirect + "?" + params.Encode())
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func newAuthenticator(t *testing.T, open social.Opener) (*social.Authenticator, *social.EncryptedStateManager) {
	t.Helper()
	states, err := social.NewEncryptedStateManagerFromSecret([]byte("test-secret-with-enough-bytes"), time.Minute)
	require.NoError(t, err)

	consent := social.NewLoopbackConsent(social.WithOpener(open), social.WithConsentLogger(silentLogger{}))
	a := social.NewAuthenticator(&fakeProvider{challenges: map[string]string{}}, states,
		social.WithConsent(consent),
		social.WithAuthenticatorLogger(silentLogger{}),
	)
	return a, states
}

func TestAuthenticatorSignInThroughLoopback(t *testing.T) {
	a, _ := newAuthenticator(t, browser(t, func(state string) url.Values {
		return url.Values{"code": {"abc"}, "state": {state}}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := a.SignIn(ctx)
	require.NoError(t, err)
	assert.Equal(t, "id-for-abc", token.IDToken)
	assert.Equal(t, "fake.com", token.Provider)

	sealed, err := a.Seal(token)
	require.NoError(t, err)
	opened, err := a.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, token.IDToken, opened.IDToken)
}

func TestAuthenticatorAccessDeniedIsUserCancelled(t *testing.T) {
	a, _ := newAuthenticator(t, browser(t, func(state string) url.Values {
		return url.Values{"error": {"access_denied"}, "state": {state}}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.SignIn(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrUserCancelled))
	assert.True(t, auth.IsAuthRejected(err))
}

func TestAuthenticatorProviderErrorIsNotCancellation(t *testing.T) {
	a, _ := newAuthenticator(t, browser(t, func(state string) url.Values {
		return url.Values{"error": {"server_error"}, "state": {state}}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.SignIn(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, social.ErrConsentFailed))
	assert.False(t, errors.Is(err, auth.ErrUserCancelled))

	var perr *social.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "server_error", perr.Code)
}

func TestAuthenticatorDismissedConsent(t *testing.T) {
	a, _ := newAuthenticator(t, func(context.Context, string) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := a.SignIn(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrUserCancelled))
}

func TestCompleteAuthRejectsForgedState(t *testing.T) {
	a, _ := newAuthenticator(t, nil)

	_, err := a.CompleteAuth(context.Background(), "abc", "forged")
	require.Error(t, err)
	assert.True(t, errors.Is(err, social.ErrInvalidState))
}

func TestCompleteAuthExchangeFailure(t *testing.T) {
	a, states := newAuthenticator(t, nil)

	// state minted outside BeginAuth has no registered challenge
	token, err := states.Encode(&social.OAuthState{Provider: "fake", CodeVerifier: "unknown"})
	require.NoError(t, err)

	_, err = a.CompleteAuth(context.Background(), "abc", token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, social.ErrTokenExchangeFailed))
}
