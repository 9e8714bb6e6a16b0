package firebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	auth "github.com/goliatone/go-restaurant-auth"
)

// IDTokenClaims are the claims of a Firebase ID token.
type IDTokenClaims struct {
	jwt.RegisteredClaims
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"email_verified"`
	Name          string         `json:"name,omitempty"`
	UserID        string         `json:"user_id,omitempty"`
	AuthTime      int64          `json:"auth_time,omitempty"`
	Firebase      FirebaseClaims `json:"firebase"`
}

// FirebaseClaims is the firebase claim namespace.
type FirebaseClaims struct {
	SignInProvider string              `json:"sign_in_provider"`
	Identities     map[string][]string `json:"identities,omitempty"`
}

// AuthenticatedAt is when the user last entered credentials.
func (c *IDTokenClaims) AuthenticatedAt() time.Time {
	if c == nil || c.AuthTime == 0 {
		return time.Time{}
	}
	return time.Unix(c.AuthTime, 0)
}

// TokenVerifier checks an ID token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*IDTokenClaims, error)
}

// JWKSVerifier validates RS256 ID tokens against the securetoken key set.
type JWKSVerifier struct {
	jwks   *keyfunc.JWKS
	parser *jwt.Parser
}

// NewJWKSVerifier fetches the signing keys and keeps them refreshed in the
// background until Close.
func NewJWKSVerifier(cfg Config, logger auth.Logger) (*JWKSVerifier, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firebase: project id is required to verify tokens")
	}
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	jwks, err := keyfunc.Get(cfg.jwksURL(), keyfunc.Options{
		Client: cfg.HTTPClient,
		RefreshErrorHandler: func(err error) {
			logger.Warn("failed to refresh firebase signing keys", "error", err)
		},
		RefreshInterval:             defaultJWKSRefresh,
		RefreshRateLimit:            5 * time.Minute,
		RefreshTimeout:              10 * time.Second,
		RefreshUnknownKID:           true,
		TolerateInitialJWKHTTPError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("firebase: failed to load signing keys: %w", err)
	}

	return &JWKSVerifier{jwks: jwks, parser: newParser(cfg, time.Now)}, nil
}

// NewGivenKeyVerifier verifies against fixed keys, keyed by kid.
func NewGivenKeyVerifier(cfg Config, keys map[string]keyfunc.GivenKey, now func() time.Time) *JWKSVerifier {
	if now == nil {
		now = time.Now
	}
	return &JWKSVerifier{jwks: keyfunc.NewGiven(keys), parser: newParser(cfg, now)}
}

func newParser(cfg Config, now func() time.Time) *jwt.Parser {
	return jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(cfg.ProjectID),
		jwt.WithIssuer(cfg.issuer()),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(now),
	)
}

// Verify implements TokenVerifier.
func (v *JWKSVerifier) Verify(_ context.Context, idToken string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}
	if _, err := v.parser.ParseWithClaims(idToken, claims, v.jwks.Keyfunc); err != nil {
		return nil, normalizeValidationError(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidIDToken)
	}
	return claims, nil
}

// Close stops the background key refresh.
func (v *JWKSVerifier) Close() {
	v.jwks.EndBackground()
}

// UnverifiedVerifier decodes claims without checking the signature. Only
// for the Auth emulator, whose tokens are unsigned.
type UnverifiedVerifier struct {
	parser *jwt.Parser
}

func NewUnverifiedVerifier() *UnverifiedVerifier {
	return &UnverifiedVerifier{parser: jwt.NewParser()}
}

// Verify implements TokenVerifier.
func (v *UnverifiedVerifier) Verify(_ context.Context, idToken string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}
	if _, _, err := v.parser.ParseUnverified(idToken, claims); err != nil {
		return nil, normalizeValidationError(err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidIDToken)
	}
	return claims, nil
}

func normalizeValidationError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %w: %w", ErrInvalidIDToken, auth.ErrRequiresRecentLogin, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
}
