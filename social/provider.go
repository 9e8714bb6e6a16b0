package social

import (
	"context"
	"time"
)

// SocialProvider defines the interface for OAuth2 providers used for
// federated sign-in.
type SocialProvider interface {
	// Name returns the provider identifier (e.g., "google").
	Name() string

	// ProviderID is the identifier the identity provider expects when the
	// provider token is exchanged (e.g., "google.com").
	ProviderID() string

	// AuthCodeURL returns the URL the user opens to grant consent.
	// The state parameter should be included for CSRF protection.
	AuthCodeURL(state string, opts ...AuthCodeOption) string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string, opts ...ExchangeOption) (*Token, error)
}

// AuthCodeOption configures the authorization URL.
type AuthCodeOption func(*authCodeConfig)

// WithScopes sets additional scopes for the auth request.
func WithScopes(scopes ...string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.scopes = append(c.scopes, scopes...)
	}
}

// WithPKCE enables PKCE with the given code challenge.
func WithPKCE(codeChallenge, method string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.codeChallenge = codeChallenge
		c.codeChallengeMethod = method
	}
}

// WithPrompt sets the prompt parameter (e.g., "consent", "select_account").
func WithPrompt(prompt string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.prompt = prompt
	}
}

// WithRedirectURI overrides the configured callback, used for loopback
// redirects bound to an ephemeral port.
func WithRedirectURI(uri string) AuthCodeOption {
	return func(c *authCodeConfig) {
		c.redirectURI = uri
	}
}

// ExchangeOption configures the token exchange.
type ExchangeOption func(*exchangeConfig)

// WithCodeVerifier sets the PKCE code verifier for token exchange.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.codeVerifier = verifier
	}
}

// WithExchangeRedirectURI must match the redirect used for AuthCodeURL.
func WithExchangeRedirectURI(uri string) ExchangeOption {
	return func(c *exchangeConfig) {
		c.redirectURI = uri
	}
}

type authCodeConfig struct {
	scopes              []string
	codeChallenge       string
	codeChallengeMethod string
	prompt              string
	redirectURI         string
}

type exchangeConfig struct {
	codeVerifier string
	redirectURI  string
}

// AuthCodeConfig represents applied auth code options in a provider-friendly form.
type AuthCodeConfig struct {
	Scopes              []string
	CodeChallenge       string
	CodeChallengeMethod string
	Prompt              string
	RedirectURI         string
}

// ExchangeConfig represents applied exchange options in a provider-friendly form.
type ExchangeConfig struct {
	CodeVerifier string
	RedirectURI  string
}

// ApplyAuthCodeOptions applies AuthCodeOption values and returns a normalized config.
func ApplyAuthCodeOptions(scopes []string, opts ...AuthCodeOption) AuthCodeConfig {
	cfg := authCodeConfig{scopes: append([]string(nil), scopes...)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return AuthCodeConfig{
		Scopes:              cfg.scopes,
		CodeChallenge:       cfg.codeChallenge,
		CodeChallengeMethod: cfg.codeChallengeMethod,
		Prompt:              cfg.prompt,
		RedirectURI:         cfg.redirectURI,
	}
}

// ApplyExchangeOptions applies ExchangeOption values and returns a normalized config.
func ApplyExchangeOptions(opts ...ExchangeOption) ExchangeConfig {
	cfg := exchangeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return ExchangeConfig{
		CodeVerifier: cfg.codeVerifier,
		RedirectURI:  cfg.redirectURI,
	}
}

// Token is the provider token set returned by a code exchange. It is the
// reusable federated credential once sealed.
type Token struct {
	Provider    string    `json:"p"`
	AccessToken string    `json:"at,omitempty"`
	IDToken     string    `json:"it,omitempty"`
	TokenType   string    `json:"tt,omitempty"`
	ExpiresAt   time.Time `json:"exp,omitempty"`
	Scopes      []string  `json:"sc,omitempty"`
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	if t == nil {
		return true
	}
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}
