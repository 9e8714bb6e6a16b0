package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/internal/rest"
	"github.com/goliatone/go-restaurant-auth/social"
)

// Federated runs an interactive federated sign-in and seals its token so
// the provider can replay it later.
type Federated interface {
	social.CredentialSealer
	ProviderID() string
	SignIn(ctx context.Context) (*social.Token, error)
}

// Option configures a Provider.
type Option func(*Provider)

func WithLogger(logger auth.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFederated enables SignInWithFederatedProvider.
func WithFederated(federated Federated) Option {
	return func(p *Provider) {
		p.federated = federated
	}
}

// WithPersistence keeps the session across restarts. Default: memory only.
func WithPersistence(persistence SessionPersistence) Option {
	return func(p *Provider) {
		if persistence != nil {
			p.persistence = persistence
		}
	}
}

// WithTokenVerifier replaces the JWKS backed verifier.
func WithTokenVerifier(verifier TokenVerifier) Option {
	return func(p *Provider) {
		if verifier != nil {
			p.verifier = verifier
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRESTOptions applies options to both API clients.
func WithRESTOptions(opts ...rest.Option) Option {
	return func(p *Provider) {
		p.restOpts = append(p.restOpts, opts...)
	}
}

// WithRecentLoginWindow sets how long after entering credentials a user may
// change their email or password. Default: auth.RecentLoginWindow.
func WithRecentLoginWindow(window time.Duration) Option {
	return func(p *Provider) {
		if window > 0 {
			p.recentLogin = window
		}
	}
}

// Provider implements auth.IdentityProvider against the Firebase Auth REST
// APIs.
type Provider struct {
	cfg         Config
	accounts    *rest.Client
	tokens      *rest.Client
	verifier    TokenVerifier
	federated   Federated
	persistence SessionPersistence
	logger      auth.Logger
	now         func() time.Time
	recentLogin time.Duration
	restOpts    []rest.Option

	// deliverMu orders session replacement with listener delivery
	deliverMu sync.Mutex

	mu       sync.Mutex
	session  *Session
	reauthAt time.Time
	listener auth.SessionListener
	subID    uint64
}

var _ auth.IdentityProvider = (*Provider)(nil)

// New validates cfg and builds a provider. The session starts signed out;
// call Restore to pick up a persisted one.
func New(cfg Config, opts ...Option) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.FromOzzoValidation(err, "invalid firebase config")
	}

	p := &Provider{
		cfg:         cfg,
		persistence: NewMemoryPersistence(),
		logger:      auth.DefaultLogger(),
		now:         time.Now,
		recentLogin: auth.RecentLoginWindow,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	restOpts := append([]rest.Option{rest.WithLogger(p.logger)}, p.restOpts...)
	if cfg.HTTPClient != nil {
		restOpts = append(restOpts, rest.WithHTTPClient(cfg.HTTPClient))
	}

	var err error
	if p.accounts, err = rest.New(cfg.identityToolkitURL(), restOpts...); err != nil {
		return nil, err
	}
	if p.tokens, err = rest.New(cfg.secureTokenURL(), restOpts...); err != nil {
		return nil, err
	}

	if p.verifier == nil {
		if cfg.skipVerification() {
			p.logger.Warn("firebase id token signatures are not verified", "emulator", cfg.emulatorHost())
			p.verifier = NewUnverifiedVerifier()
		} else if p.verifier, err = NewJWKSVerifier(cfg, p.logger); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Close releases background resources.
func (p *Provider) Close() {
	if v, ok := p.verifier.(*JWKSVerifier); ok {
		v.Close()
	}
}

// CurrentIdentity returns the signed in identity, or nil.
func (p *Provider) CurrentIdentity() *auth.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Identity()
}

// Subscribe registers the single session listener and delivers the
// current identity to it before returning.
func (p *Provider) Subscribe(listener auth.SessionListener) (auth.Unsubscribe, error) {
	if listener == nil {
		return nil, fmt.Errorf("%w: nil listener", auth.ErrInvalidTransition)
	}

	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	if p.listener != nil {
		p.mu.Unlock()
		return nil, auth.ErrSubscriptionActive
	}
	p.subID++
	id := p.subID
	p.listener = listener
	current := p.session.Identity()
	p.mu.Unlock()

	listener(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.deliverMu.Lock()
			defer p.deliverMu.Unlock()
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.subID == id {
				p.listener = nil
			}
		})
	}, nil
}

// Restore loads a persisted session and refreshes it. A session the backend
// no longer honors is discarded and the provider stays signed out.
func (p *Provider) Restore(ctx context.Context) error {
	stored, err := p.persistence.Load(ctx)
	if err != nil {
		p.logger.Warn("failed to load persisted session", "error", err)
		return nil
	}
	if stored == nil || stored.RefreshToken == "" {
		return nil
	}

	session, err := p.refresh(ctx, stored)
	if err == nil {
		session, err = p.lookup(ctx, session)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Info("persisted session rejected, staying signed out", "uid", stored.SubjectID, "error", err)
		p.clearPersisted(ctx)
		return nil
	}

	p.replace(session, true)
	p.persist(ctx, session)
	return nil
}

// SignInWithPassword implements auth.IdentityProvider.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Identity, error) {
	var resp authResponse
	err := p.call(ctx, "sign in", "signInWithPassword", passwordRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.establish(ctx, &resp)
}

// SignUpWithPassword implements auth.IdentityProvider.
func (p *Provider) SignUpWithPassword(ctx context.Context, email, password string) (*auth.Identity, error) {
	var resp authResponse
	err := p.call(ctx, "sign up", "signUp", passwordRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return p.establish(ctx, &resp)
}

// Reload refreshes the profile of the current user without notifying the
// listener.
func (p *Provider) Reload(ctx context.Context) (*auth.Identity, error) {
	session, err := p.activeSession(ctx)
	if err != nil {
		return nil, err
	}
	session, err = p.lookup(ctx, session)
	if err != nil {
		return nil, err
	}
	p.replace(session, false)
	p.persist(ctx, session)
	return session.Identity(), nil
}

// SignInWithFederatedProvider runs the interactive flow, exchanges the
// provider token for a session and returns a sealed credential that
// CompleteFederatedSignIn can replay.
func (p *Provider) SignInWithFederatedProvider(ctx context.Context) (*auth.FederatedResult, error) {
	if p.federated == nil {
		return nil, ErrFederatedNotConfigured
	}

	token, err := p.federated.SignIn(ctx)
	if err != nil {
		return nil, err
	}

	// seal first so a failure never leaves an established session behind
	sealed, err := p.federated.Seal(token)
	if err != nil {
		return nil, fmt.Errorf("failed to seal federated credential: %w", err)
	}

	identity, err := p.signInWithToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return &auth.FederatedResult{
		Identity:   identity,
		Credential: auth.FederatedCredential(sealed),
	}, nil
}

// CompleteFederatedSignIn implements auth.IdentityProvider.
func (p *Provider) CompleteFederatedSignIn(ctx context.Context, credential auth.FederatedCredential) (*auth.Identity, error) {
	if p.federated == nil {
		return nil, ErrFederatedNotConfigured
	}
	token, err := p.federated.Open(string(credential))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrInvalidCredentials, err)
	}
	return p.signInWithToken(ctx, token)
}

func (p *Provider) signInWithToken(ctx context.Context, token *social.Token) (*auth.Identity, error) {
	providerID := token.Provider
	if providerID == "" {
		providerID = p.federated.ProviderID()
	}

	body := url.Values{}
	if token.IDToken != "" {
		body.Set("id_token", token.IDToken)
	}
	if token.AccessToken != "" {
		body.Set("access_token", token.AccessToken)
	}
	body.Set("providerId", providerID)

	var resp authResponse
	err := p.call(ctx, "federated sign in", "signInWithIdp", idpRequest{
		PostBody:          body.Encode(),
		RequestURI:        "http://localhost",
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.DisplayName == "" {
		resp.DisplayName = resp.FullName
	}
	return p.establish(ctx, &resp)
}

// SendEmailVerification implements auth.IdentityProvider.
func (p *Provider) SendEmailVerification(ctx context.Context) error {
	session, err := p.activeSession(ctx)
	if err != nil {
		return err
	}
	return p.call(ctx, "send verification", "sendOobCode", oobRequest{
		RequestType: oobVerifyEmail,
		IDToken:     session.IDToken,
	}, nil)
}

// SignOut ends the provider session. Signing out when already signed out is
// a no-op.
func (p *Provider) SignOut(ctx context.Context) error {
	p.deliverMu.Lock()
	p.mu.Lock()
	had := p.session != nil
	p.session = nil
	p.reauthAt = time.Time{}
	listener := p.listener
	p.mu.Unlock()
	if had && listener != nil {
		listener(nil)
	}
	p.deliverMu.Unlock()

	p.clearPersisted(ctx)
	return nil
}

// SendPasswordReset implements auth.IdentityProvider. Unknown addresses are
// not reported.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) error {
	err := p.call(ctx, "password reset", "sendOobCode", oobRequest{
		RequestType: oobPasswordReset,
		Email:       strings.TrimSpace(email),
	}, nil)
	if errors.Is(err, auth.ErrUnknownAccount) {
		p.logger.Debug("password reset requested for unknown account")
		return nil
	}
	return err
}

// Reauthenticate confirms the current user's password and renews the recent
// login window.
func (p *Provider) Reauthenticate(ctx context.Context, email, password string) error {
	current, err := p.activeSession(ctx)
	if err != nil {
		return err
	}

	var resp authResponse
	err = p.call(ctx, "reauthenticate", "signInWithPassword", passwordRequest{
		Email:             strings.TrimSpace(email),
		Password:          password,
		ReturnSecureToken: true,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.LocalID != current.SubjectID {
		return fmt.Errorf("%w: credentials belong to another account", auth.ErrInvalidCredentials)
	}

	session := current.Clone()
	session.IDToken = resp.IDToken
	session.RefreshToken = resp.RefreshToken
	session.ExpiresAt = p.now().Add(resp.ExpiresIn.Duration())

	p.mu.Lock()
	p.reauthAt = p.now()
	p.mu.Unlock()
	p.replace(session, false)
	p.persist(ctx, session)
	return nil
}

// ChangeEmail implements auth.IdentityProvider. The new address starts
// unverified.
func (p *Provider) ChangeEmail(ctx context.Context, newEmail string) error {
	return p.update(ctx, "change email", updateRequest{Email: strings.TrimSpace(newEmail)})
}

// ChangePassword implements auth.IdentityProvider.
func (p *Provider) ChangePassword(ctx context.Context, newPassword string) error {
	return p.update(ctx, "change password", updateRequest{Password: newPassword})
}

func (p *Provider) update(ctx context.Context, op string, req updateRequest) error {
	current, err := p.activeSession(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	reauthAt := p.reauthAt
	p.mu.Unlock()
	if !auth.IsWithinWindow(reauthAt, p.recentLogin, p.now()) {
		return fmt.Errorf("%w: %s", auth.ErrRequiresRecentLogin, op)
	}

	req.IDToken = current.IDToken
	req.ReturnSecureToken = true

	var resp updateResponse
	if err := p.call(ctx, op, "update", req, &resp); err != nil {
		return err
	}

	session := current.Clone()
	if resp.IDToken != "" {
		session.IDToken = resp.IDToken
		session.RefreshToken = resp.RefreshToken
		session.ExpiresAt = p.now().Add(resp.ExpiresIn.Duration())
	}
	if req.Email != "" {
		session.Email = req.Email
		session.EmailVerified = false
	}
	p.replace(session, false)
	p.persist(ctx, session)
	return nil
}

// establish turns a sign-in response into the current session, records the
// login time and notifies the listener.
func (p *Provider) establish(ctx context.Context, resp *authResponse) (*auth.Identity, error) {
	session, err := p.sessionFrom(ctx, resp)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.reauthAt = p.now()
	p.mu.Unlock()

	p.replace(session, true)
	p.persist(ctx, session)
	return session.Identity(), nil
}

func (p *Provider) sessionFrom(ctx context.Context, resp *authResponse) (*Session, error) {
	claims, err := p.verifier.Verify(ctx, resp.IDToken)
	if err != nil {
		return nil, err
	}
	if resp.LocalID != "" && claims.Subject != resp.LocalID {
		return nil, fmt.Errorf("%w: token subject does not match account", ErrInvalidIDToken)
	}

	session := &Session{
		SubjectID:      claims.Subject,
		Email:          firstNonEmpty(resp.Email, claims.Email),
		DisplayName:    firstNonEmpty(resp.DisplayName, claims.Name),
		EmailVerified:  resp.EmailVerified || claims.EmailVerified,
		SignInProvider: firstNonEmpty(claims.Firebase.SignInProvider, resp.ProviderID, auth.ProviderPassword),
		IDToken:        resp.IDToken,
		RefreshToken:   resp.RefreshToken,
		ExpiresAt:      p.now().Add(resp.ExpiresIn.Duration()),
	}
	if claims.ExpiresAt != nil && (resp.ExpiresIn == 0 || claims.ExpiresAt.Time.Before(session.ExpiresAt)) {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// activeSession returns the current session with a usable ID token.
func (p *Provider) activeSession(ctx context.Context) (*Session, error) {
	p.mu.Lock()
	session := p.session.Clone()
	p.mu.Unlock()

	if session == nil {
		return nil, auth.ErrNotSignedIn
	}
	if !session.expiresWithin(p.now(), p.cfg.refreshMargin()) {
		return session, nil
	}

	refreshed, err := p.refresh(ctx, session)
	if err != nil {
		return nil, err
	}
	p.replace(refreshed, false)
	p.persist(ctx, refreshed)
	return refreshed, nil
}

func (p *Provider) refresh(ctx context.Context, session *Session) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", session.RefreshToken)

	query := url.Values{}
	query.Set("key", p.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokens.URL("token", query), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("firebase refresh: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := p.tokens.Do(req, &resp); err != nil {
		return nil, mapError(err, "refresh")
	}
	if resp.UserID != "" && resp.UserID != session.SubjectID {
		return nil, fmt.Errorf("%w: refreshed token belongs to another account", auth.ErrRequiresRecentLogin)
	}

	claims, err := p.verifier.Verify(ctx, resp.IDToken)
	if err != nil {
		return nil, err
	}

	next := session.Clone()
	next.IDToken = resp.IDToken
	next.RefreshToken = firstNonEmpty(resp.RefreshToken, session.RefreshToken)
	next.ExpiresAt = p.now().Add(resp.ExpiresIn.Duration())
	next.EmailVerified = next.EmailVerified || claims.EmailVerified
	if claims.Firebase.SignInProvider != "" {
		next.SignInProvider = claims.Firebase.SignInProvider
	}
	return next, nil
}

func (p *Provider) lookup(ctx context.Context, session *Session) (*Session, error) {
	var resp lookupResponse
	if err := p.call(ctx, "lookup", "lookup", lookupRequest{IDToken: session.IDToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, fmt.Errorf("%w: account no longer exists", auth.ErrRequiresRecentLogin)
	}

	info := resp.Users[0]
	next := session.Clone()
	next.Email = firstNonEmpty(info.Email, session.Email)
	next.DisplayName = firstNonEmpty(info.DisplayName, session.DisplayName)
	next.EmailVerified = info.EmailVerified
	return next, nil
}

// replace swaps the current session. With notify set the listener sees the
// new identity before any later replacement is made.
func (p *Provider) replace(session *Session, notify bool) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	p.session = session.Clone()
	listener := p.listener
	p.mu.Unlock()

	if notify && listener != nil {
		listener(session.Identity())
	}
}

func (p *Provider) persist(ctx context.Context, session *Session) {
	if err := p.persistence.Save(ctx, session); err != nil {
		p.logger.Warn("failed to persist session", "uid", session.SubjectID, "error", err)
	}
}

func (p *Provider) clearPersisted(ctx context.Context) {
	if err := p.persistence.Clear(ctx); err != nil {
		p.logger.Warn("failed to clear persisted session", "error", err)
	}
}

func (p *Provider) call(ctx context.Context, op, method string, body, out any) error {
	query := url.Values{}
	query.Set("key", p.cfg.APIKey)

	err := p.accounts.JSON(ctx, rest.Request{
		Method: http.MethodPost,
		Path:   "accounts:" + method,
		Query:  query,
		Body:   body,
	}, out)
	return mapError(err, op)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
