package firebase

import (
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"
	defaultJWKSURL            = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	issuerPrefix              = "https://securetoken.google.com/"

	defaultRefreshMargin = time.Minute
	defaultJWKSRefresh   = time.Hour
)

// Config holds the Firebase web app settings.
type Config struct {
	// APIKey is the web API key sent as the key query parameter.
	APIKey string

	// ProjectID is the token audience and the issuer suffix.
	ProjectID string

	// EmulatorHost points both REST APIs at the Auth emulator
	// (e.g., "localhost:9099"). Emulator tokens are unsigned, so token
	// verification is skipped.
	EmulatorHost string

	// IdentityToolkitURL overrides the accounts API base URL.
	IdentityToolkitURL string

	// SecureTokenURL overrides the token refresh API base URL.
	SecureTokenURL string

	// JWKSURL overrides where ID token signing keys are fetched.
	JWKSURL string

	// SkipTokenVerification parses ID tokens without checking signatures.
	SkipTokenVerification bool

	// RefreshMargin refreshes the ID token this long before it expires.
	// Default: 1 minute.
	RefreshMargin time.Duration

	HTTPClient *http.Client
}

// Validate checks the required settings.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.ProjectID, validation.When(!c.skipVerification(), validation.Required)),
		validation.Field(&c.IdentityToolkitURL, is.URL),
		validation.Field(&c.SecureTokenURL, is.URL),
		validation.Field(&c.JWKSURL, is.URL),
	)
}

func (c Config) identityToolkitURL() string {
	if c.IdentityToolkitURL != "" {
		return c.IdentityToolkitURL
	}
	if host := c.emulatorHost(); host != "" {
		return "http://" + host + "/identitytoolkit.googleapis.com/v1"
	}
	return defaultIdentityToolkitURL
}

func (c Config) secureTokenURL() string {
	if c.SecureTokenURL != "" {
		return c.SecureTokenURL
	}
	if host := c.emulatorHost(); host != "" {
		return "http://" + host + "/securetoken.googleapis.com/v1"
	}
	return defaultSecureTokenURL
}

func (c Config) jwksURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return defaultJWKSURL
}

func (c Config) issuer() string {
	return issuerPrefix + c.ProjectID
}

func (c Config) refreshMargin() time.Duration {
	if c.RefreshMargin > 0 {
		return c.RefreshMargin
	}
	return defaultRefreshMargin
}

func (c Config) emulatorHost() string {
	host := strings.TrimSpace(c.EmulatorHost)
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

func (c Config) skipVerification() bool {
	return c.SkipTokenVerification || c.emulatorHost() != ""
}
