package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/activitymap"
	"github.com/goliatone/go-restaurant-auth/config"
	"github.com/goliatone/go-restaurant-auth/internal/rest"
	"github.com/goliatone/go-restaurant-auth/metrics"
	"github.com/goliatone/go-restaurant-auth/provider/firebase"
	"github.com/goliatone/go-restaurant-auth/repository"
	"github.com/goliatone/go-restaurant-auth/restaurants"
	"github.com/goliatone/go-restaurant-auth/social"
	"github.com/goliatone/go-restaurant-auth/social/providers/google"
	"github.com/goliatone/go-restaurant-auth/userstore"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// pendingSignupTTL bounds how long a sealed federated credential can be
// replayed to finish a role selection.
const pendingSignupTTL = 10 * time.Minute

// App holds the wired services for one invocation.
type App struct {
	cfg      config.Config
	loggers  loggers
	logger   auth.Logger
	registry *prometheus.Registry

	store      *repository.Manager
	provider   *firebase.Provider
	controller *auth.Controller
	catalog    *restaurants.Client
	listings   *restaurants.OwnerListings

	in  *bufio.Reader
	out io.Writer
}

// newApp wires every service. interactive raises the transition timeout
// to leave room for a browser consent.
func newApp(ctx context.Context, cfg config.Config, interactive bool, in io.Reader, out io.Writer) (*App, error) {
	lgrs := newLoggers(cfg.LogLevel)
	a := &App{
		cfg:      cfg,
		loggers:  lgrs,
		logger:   lgrs.GetLogger("app"),
		registry: prometheus.NewRegistry(),
		in:       bufio.NewReader(in),
		out:      out,
	}

	restOpts := []rest.Option{rest.WithUserAgent("restaurantctl")}
	if cfg.RateLimit > 0 {
		restOpts = append(restOpts, rest.WithRateLimit(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1))
	}

	if cfg.SessionDB != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.SessionDB), 0o700); err != nil {
			return nil, fmt.Errorf("session store directory: %w", err)
		}
	}
	store, err := repository.Open(ctx, cfg.SessionDB, cfg.FirebaseProjectID, cfg.Profile)
	if err != nil {
		return nil, err
	}
	a.store = store

	providerOpts := []firebase.Option{
		firebase.WithLogger(lgrs.GetLogger("firebase")),
		firebase.WithPersistence(store.Sessions()),
		firebase.WithRESTOptions(restOpts...),
	}
	if cfg.GoogleEnabled() {
		federated, err := a.federated()
		if err != nil {
			a.Close()
			return nil, err
		}
		providerOpts = append(providerOpts, firebase.WithFederated(federated))
	}

	if a.provider, err = firebase.New(cfg.Firebase(), providerOpts...); err != nil {
		a.Close()
		return nil, err
	}

	users, err := userstore.New(cfg.APIURL, lgrs.GetLogger("users"), restOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.catalog, err = restaurants.New(cfg.APIURL, lgrs.GetLogger("restaurants"), restOpts...); err != nil {
		a.Close()
		return nil, err
	}

	timeout := cfg.OperationTimeout
	if interactive && cfg.ConsentTimeout > timeout {
		timeout = cfg.ConsentTimeout
	}

	a.controller = auth.NewController(a.provider, users,
		auth.WithLogger(lgrs.GetLogger("session")),
		auth.WithOperationTimeout(timeout),
		auth.WithActivitySink(auth.MultiActivitySink{
			activitymap.NewLogSink(lgrs.GetLogger("activity"), activitymap.WithRedactedKeys("email")),
			metrics.NewCollector(a.registry),
		}),
	)
	a.listings = restaurants.NewOwnerListings(a.catalog, a.controller, lgrs.GetLogger("listings"))

	if err := a.provider.Restore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.controller.Start(ctx); err != nil {
		a.logger.Warn("restored session could not be reconciled", "error", err)
	}
	return a, nil
}

func (a *App) federated() (*social.Authenticator, error) {
	states, err := social.NewEncryptedStateManagerFromSecret([]byte(a.cfg.StateSecret), pendingSignupTTL)
	if err != nil {
		return nil, err
	}

	consent := social.NewLoopbackConsent(
		social.WithOpener(a.openBrowser),
		social.WithConsentLogger(a.loggers.GetLogger("consent")),
	)

	provider := google.New(google.Config{
		ClientID:     a.cfg.GoogleClientID,
		ClientSecret: a.cfg.GoogleClientSecret,
	})

	return social.NewAuthenticator(provider, states,
		social.WithConsent(consent),
		social.WithAuthenticatorLogger(a.loggers.GetLogger("google")),
	), nil
}

// Close releases everything newApp acquired. It does not sign out.
func (a *App) Close() {
	if a.controller != nil {
		_ = a.controller.Close()
	}
	if a.provider != nil {
		a.provider.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close session store", "error", err)
		}
	}
}

func (a *App) openBrowser(ctx context.Context, url string) error {
	fmt.Fprintf(a.out, "Continue sign-in in your browser:\n  %s\n", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		a.logger.Debug("could not launch browser", "error", err)
		return nil
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func (a *App) prompt(format string, args ...any) (string, error) {
	fmt.Fprintf(a.out, format, args...)
	line, err := a.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) printJSON(v any) {
	fmt.Fprintln(a.out, print.MaybePrettyJSON(v))
}

func (a *App) printState() {
	st := a.controller.State()
	view := st.View()
	a.printJSON(map[string]any{
		"status":   view.Status,
		"route":    st.Route(),
		"identity": view.Identity,
		"role":     view.Role,
		"verified": view.Verified,
	})
}
