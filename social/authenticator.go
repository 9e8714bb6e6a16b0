package social

import (
	"context"
	"errors"
	"fmt"

	auth "github.com/goliatone/go-restaurant-auth"
)

// Authenticator runs the federated consent flow for one provider and seals
// the resulting token into a reusable credential.
type Authenticator struct {
	provider SocialProvider
	states   *EncryptedStateManager
	consent  *LoopbackConsent
	logger   auth.Logger
}

// AuthenticatorOption configures the authenticator.
type AuthenticatorOption func(*Authenticator)

// WithAuthenticatorLogger sets the logger.
func WithAuthenticatorLogger(logger auth.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithConsent sets the consent receiver.
func WithConsent(consent *LoopbackConsent) AuthenticatorOption {
	return func(a *Authenticator) {
		if consent != nil {
			a.consent = consent
		}
	}
}

// NewAuthenticator creates an authenticator for provider. states seals both
// OAuth state and credentials.
func NewAuthenticator(provider SocialProvider, states *EncryptedStateManager, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		provider: provider,
		states:   states,
		logger:   auth.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.consent == nil {
		a.consent = NewLoopbackConsent(WithConsentLogger(a.logger))
	}
	return a
}

// ProviderID is the identity provider id of the wrapped provider.
func (a *Authenticator) ProviderID() string {
	return a.provider.ProviderID()
}

// AuthRedirect contains the authorization URL the user must visit.
type AuthRedirect struct {
	URL         string
	State       string
	Provider    string
	RedirectURI string
}

// BeginAuth builds a PKCE authorization URL with an encrypted state token.
func (a *Authenticator) BeginAuth(redirectURI string) (*AuthRedirect, error) {
	if a.states == nil {
		return nil, ErrInvalidState
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}

	state := &OAuthState{
		Nonce:        generateNonce(),
		Provider:     a.provider.Name(),
		CodeVerifier: codeVerifier,
		RedirectURI:  redirectURI,
	}

	stateToken, err := a.states.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	opts := []AuthCodeOption{WithPKCE(computeCodeChallenge(codeVerifier), "S256"), WithPrompt("select_account")}
	if redirectURI != "" {
		opts = append(opts, WithRedirectURI(redirectURI))
	}

	return &AuthRedirect{
		URL:         a.provider.AuthCodeURL(stateToken, opts...),
		State:       stateToken,
		Provider:    a.provider.Name(),
		RedirectURI: redirectURI,
	}, nil
}

// CompleteAuth verifies the state and exchanges the code.
func (a *Authenticator) CompleteAuth(ctx context.Context, code, stateToken string) (*Token, error) {
	if a.states == nil {
		return nil, ErrInvalidState
	}

	state, err := a.states.Decode(stateToken)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != a.provider.Name() {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	opts := []ExchangeOption{WithCodeVerifier(state.CodeVerifier)}
	if state.RedirectURI != "" {
		opts = append(opts, WithExchangeRedirectURI(state.RedirectURI))
	}

	token, err := a.provider.Exchange(ctx, code, opts...)
	if err != nil {
		a.logger.Warn("token exchange failed", append([]any{"error", err}, logFields(err)...)...)
		return nil, wrapProviderError(ErrTokenExchangeFailed, a.provider.Name(), "exchange", err)
	}
	if token.IDToken == "" && token.AccessToken == "" {
		return nil, wrapProviderError(ErrTokenExchangeFailed, a.provider.Name(), "exchange", nil)
	}
	token.Provider = a.provider.ProviderID()
	return token, nil
}

// SignIn runs the whole consent flow: bind the callback, present the URL,
// wait for the redirect and exchange the code.
func (a *Authenticator) SignIn(ctx context.Context) (*Token, error) {
	session, err := a.consent.Start()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			a.logger.Debug("consent server shutdown", "error", err)
		}
	}()

	redirect, err := a.BeginAuth(session.RedirectURI())
	if err != nil {
		return nil, err
	}

	result, err := session.Authorize(ctx, redirect.URL)
	if err != nil {
		return nil, err
	}

	token, err := a.CompleteAuth(ctx, result.Code, result.State)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("federated consent completed", "provider", a.provider.Name())
	return token, nil
}

// Seal implements CredentialSealer.
func (a *Authenticator) Seal(token *Token) (string, error) {
	return a.states.Seal(token)
}

// Open implements CredentialSealer.
func (a *Authenticator) Open(sealed string) (*Token, error) {
	return a.states.Open(sealed)
}
