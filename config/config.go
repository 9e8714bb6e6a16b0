// Package config loads restaurantctl settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-restaurant-auth/provider/firebase"
)

// Config is the full runtime configuration.
type Config struct {
	FirebaseAPIKey       string `env:"RESTAURANTS_FIREBASE_API_KEY"`
	FirebaseProjectID    string `env:"RESTAURANTS_FIREBASE_PROJECT_ID"`
	FirebaseAuthDomain   string `env:"RESTAURANTS_FIREBASE_AUTH_DOMAIN"`
	FirebaseEmulatorHost string `env:"FIREBASE_AUTH_EMULATOR_HOST"`

	APIURL string `env:"RESTAURANTS_API_URL" envDefault:"http://localhost:8000"`

	GoogleClientID     string `env:"RESTAURANTS_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"RESTAURANTS_GOOGLE_CLIENT_SECRET"`
	// StateSecret seeds the keys that protect OAuth state and sealed
	// federated credentials.
	StateSecret    string        `env:"RESTAURANTS_STATE_SECRET"`
	ConsentTimeout time.Duration `env:"RESTAURANTS_CONSENT_TIMEOUT" envDefault:"2m"`

	SessionDB string `env:"RESTAURANTS_SESSION_DB"`
	Profile   string `env:"RESTAURANTS_PROFILE" envDefault:"default"`

	OperationTimeout time.Duration `env:"RESTAURANTS_OPERATION_TIMEOUT" envDefault:"30s"`
	RateLimit        float64       `env:"RESTAURANTS_RATE_LIMIT" envDefault:"10"`
	LogLevel         string        `env:"RESTAURANTS_LOG_LEVEL" envDefault:"info"`
}

// viteEnv holds the names the web client was configured with.
type viteEnv struct {
	APIKey     string `env:"VITE_FIREBASE_API_KEY"`
	ProjectID  string `env:"VITE_FIREBASE_PROJECT_ID"`
	AuthDomain string `env:"VITE_FIREBASE_AUTH_DOMAIN"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return load(env.Options{})
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	var legacy viteEnv
	if err := env.ParseWithOptions(&legacy, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.FirebaseAPIKey = firstNonEmpty(cfg.FirebaseAPIKey, legacy.APIKey)
	cfg.FirebaseProjectID = firstNonEmpty(cfg.FirebaseProjectID, legacy.ProjectID)
	cfg.FirebaseAuthDomain = firstNonEmpty(cfg.FirebaseAuthDomain, legacy.AuthDomain)

	if cfg.SessionDB == "" {
		cfg.SessionDB = defaultSessionDB()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.FirebaseAPIKey, validation.Required),
		validation.Field(&c.FirebaseProjectID, validation.When(c.FirebaseEmulatorHost == "", validation.Required)),
		validation.Field(&c.APIURL, validation.Required, is.URL),
		validation.Field(&c.StateSecret, validation.When(c.GoogleClientID != "", validation.Required, validation.Length(16, 0))),
		validation.Field(&c.ConsentTimeout, validation.Min(time.Second)),
		validation.Field(&c.OperationTimeout, validation.Min(time.Second)),
		validation.Field(&c.RateLimit, validation.Min(0.0)),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info")),
	)
	if err != nil {
		return goerrors.FromOzzoValidation(err, "invalid configuration")
	}
	return nil
}

// GoogleEnabled reports whether federated sign-in is configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// Firebase returns the identity provider settings.
func (c Config) Firebase() firebase.Config {
	return firebase.Config{
		APIKey:       c.FirebaseAPIKey,
		ProjectID:    c.FirebaseProjectID,
		EmulatorHost: c.FirebaseEmulatorHost,
	}
}

func defaultSessionDB() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "restaurantctl.db"
	}
	return filepath.Join(dir, "restaurantctl", "session.db")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
