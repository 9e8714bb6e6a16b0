package social

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	auth "github.com/goliatone/go-restaurant-auth"
)

//go:embed views/*.django
var viewsFS embed.FS

const (
	defaultListenAddr   = "127.0.0.1:0"
	defaultCallbackPath = "/callback"
	shutdownTimeout     = 2 * time.Second

	errorAccessDenied = "access_denied"
)

// Opener presents the consent URL to the user, usually by launching a
// browser.
type Opener func(ctx context.Context, url string) error

// ConsentOption configures LoopbackConsent.
type ConsentOption func(*LoopbackConsent)

// WithListenAddr sets the loopback address. Port 0 picks a free port.
func WithListenAddr(addr string) ConsentOption {
	return func(l *LoopbackConsent) {
		if addr != "" {
			l.addr = addr
		}
	}
}

// WithCallbackPath sets the redirect path.
func WithCallbackPath(path string) ConsentOption {
	return func(l *LoopbackConsent) {
		if path != "" {
			l.path = "/" + strings.TrimLeft(path, "/")
		}
	}
}

// WithOpener sets how the consent URL reaches the user.
func WithOpener(open Opener) ConsentOption {
	return func(l *LoopbackConsent) {
		if open != nil {
			l.open = open
		}
	}
}

// WithConsentLogger sets the logger.
func WithConsentLogger(logger auth.Logger) ConsentOption {
	return func(l *LoopbackConsent) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// LoopbackConsent receives the provider redirect on a local HTTP server,
// the desktop equivalent of a sign-in popup.
type LoopbackConsent struct {
	addr   string
	path   string
	open   Opener
	logger auth.Logger
}

// NewLoopbackConsent creates a consent receiver.
func NewLoopbackConsent(opts ...ConsentOption) *LoopbackConsent {
	l := &LoopbackConsent{
		addr:   defaultListenAddr,
		path:   defaultCallbackPath,
		logger: auth.DefaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.open == nil {
		logger := l.logger
		l.open = func(_ context.Context, url string) error {
			logger.Info("open this URL in a browser to continue sign-in", "url", url)
			return nil
		}
	}
	return l
}

// ConsentResult is what the provider sent back to the redirect.
type ConsentResult struct {
	Code  string
	State string
}

type consentOutcome struct {
	result *ConsentResult
	err    error
}

// ConsentSession is one bound callback server.
type ConsentSession struct {
	app      *fiber.App
	redirect string
	open     Opener
	logger   auth.Logger
	outcome  chan consentOutcome
	served   chan error
	once     sync.Once
}

// Start binds the listener and serves the callback until Close.
func (l *LoopbackConsent) Start() (*ConsentSession, error) {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("consent views: %w", err)
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", ErrConsentFailed, l.addr, err)
	}

	s := &ConsentSession{
		redirect: "http://" + ln.Addr().String() + l.path,
		open:     l.open,
		logger:   l.logger,
		outcome:  make(chan consentOutcome, 1),
		served:   make(chan error, 1),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Views:                 django.NewFileSystem(http.FS(views), ".django"),
	})
	s.app.Get(l.path, s.callback)

	go func() {
		s.served <- s.app.Listener(ln)
	}()

	l.logger.Debug("consent callback listening", "redirect_uri", s.redirect)
	return s, nil
}

// RedirectURI is the address the provider must redirect to.
func (s *ConsentSession) RedirectURI() string {
	return s.redirect
}

// Authorize presents authURL and waits for the redirect. A denial or a
// cancelled context resolves as auth.ErrUserCancelled.
func (s *ConsentSession) Authorize(ctx context.Context, authURL string) (*ConsentResult, error) {
	if err := s.open(ctx, authURL); err != nil {
		return nil, fmt.Errorf("%w: open consent url: %w", ErrConsentFailed, err)
	}

	select {
	case out := <-s.outcome:
		return out.result, out.err
	case err := <-s.served:
		return nil, fmt.Errorf("%w: callback server stopped: %v", ErrConsentFailed, err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("consent not completed: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", auth.ErrUserCancelled, ctx.Err())
	}
}

// Close stops the callback server.
func (s *ConsentSession) Close() error {
	var err error
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = s.app.ShutdownWithContext(ctx)
	})
	return err
}

func (s *ConsentSession) callback(c *fiber.Ctx) error {
	if reason := c.Query("error"); reason != "" {
		var err error
		if reason == errorAccessDenied {
			err = fmt.Errorf("%w: consent denied", auth.ErrUserCancelled)
		} else {
			err = wrapProviderError(ErrConsentFailed, "", "consent", &ProviderError{
				Operation:   "consent",
				Code:        strings.Clone(reason),
				Description: strings.Clone(c.Query("error_description")),
			})
			s.logger.Warn("consent failed", logFields(err)...)
		}
		s.deliver(consentOutcome{err: err})
		return c.Render("callback", fiber.Map{
			"title":   "Sign-in cancelled",
			"message": "No account was signed in.",
			"success": false,
		})
	}

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).Render("callback", fiber.Map{
			"title":   "Sign-in failed",
			"message": "The provider did not return an authorization code.",
			"success": false,
		})
	}

	s.deliver(consentOutcome{result: &ConsentResult{
		Code:  strings.Clone(code),
		State: strings.Clone(c.Query("state")),
	}})

	return c.Render("callback", fiber.Map{
		"title":   "Signed in",
		"message": "Authorization received.",
		"success": true,
	})
}

// deliver keeps the first outcome; later redirects are ignored.
func (s *ConsentSession) deliver(out consentOutcome) {
	select {
	case s.outcome <- out:
	default:
		s.logger.Warn("ignoring repeated consent callback")
	}
}
