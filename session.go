package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const signOutCleanupTimeout = 10 * time.Second

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithActivitySink sets the sink that receives session activity.
func WithActivitySink(sink ActivitySink) ControllerOption {
	return func(c *Controller) {
		c.activitySink = normalizeActivitySink(sink)
	}
}

// WithOperationTimeout bounds every transition. Zero disables the bound.
func WithOperationTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns the session state and reconciles the identity provider
// with the backend user store. Sign-in style transitions are rejected with
// ErrTransitionInProgress while another one runs; SignOut waits for it.
type Controller struct {
	provider     IdentityProvider
	users        UserStore
	logger       Logger
	activitySink ActivitySink
	timeout      time.Duration
	now          func() time.Time

	// opMu serializes transitions
	opMu sync.Mutex
	// notifyMu orders state changes with their observer delivery
	notifyMu sync.Mutex

	mu           sync.Mutex
	state        State
	inTransition bool
	lastIdentity *Identity
	unsubscribe  Unsubscribe
	subscribed   bool
	closed       bool
	watchers     []watcher
	nextWatcher  int
}

type watcher struct {
	id int
	fn func(State)
}

// NewController creates a signed out controller. Call Start to subscribe to
// the identity provider.
func NewController(provider IdentityProvider, users UserStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		provider:     provider,
		users:        users,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
		state:        SignedOutState(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// State returns a snapshot of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Watch registers fn to be called, in order, after every state change. The
// observer must not call back into the controller synchronously.
func (c *Controller) Watch(fn func(State)) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	c.nextWatcher++
	id := c.nextWatcher
	c.watchers = append(c.watchers, watcher{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, w := range c.watchers {
			if w.id == id {
				c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
				return
			}
		}
	}
}

// Start acquires the single identity provider subscription and reconciles
// any identity the provider restored. The subscription stays active even
// when reconciliation fails.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if c.subscribed {
		c.mu.Unlock()
		return ErrSubscriptionActive
	}
	c.subscribed = true
	c.inTransition = true
	c.lastIdentity = nil
	c.mu.Unlock()

	unsubscribe, err := c.provider.Subscribe(c.onSessionChange)
	if err != nil {
		c.mu.Lock()
		c.subscribed = false
		c.inTransition = false
		c.mu.Unlock()
		return fmt.Errorf("subscribe to identity provider: %w", err)
	}

	c.mu.Lock()
	c.unsubscribe = unsubscribe
	restored := c.lastIdentity.Clone()
	c.mu.Unlock()

	if restored == nil {
		c.mu.Lock()
		c.inTransition = false
		c.mu.Unlock()
		return nil
	}

	c.logger.Debug("reconciling restored session", "uid", restored.SubjectID, "provider", restored.SignInProvider)
	prev := c.State()
	c.apply(func(State) (State, bool) {
		return authenticatingState(), true
	})

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	next, err := c.reconcile(ctx, restored)
	err = c.timeoutError(ctx, err)
	c.finishTransition(ctx, next, &prev)
	return err
}

// Close releases the identity provider subscription. No provider callback
// reaches the controller afterwards. Close does not sign out.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.watchers = nil
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return nil
}

// onSessionChange is the provider listener. While a transition runs the
// transition owns the outcome, so the notification is only recorded.
func (c *Controller) onSessionChange(identity *Identity) {
	c.apply(func(cur State) (State, bool) {
		if c.closed {
			return cur, false
		}
		c.lastIdentity = identity.Clone()
		if c.inTransition {
			return cur, false
		}
		if identity == nil && cur.Status() == StatusSignedIn {
			c.logger.Info("provider session ended", "uid", cur.identity.SubjectID)
			return SignedOutState(), true
		}
		if identity != nil && cur.Status() == StatusSignedIn && identity.SubjectID != cur.identity.SubjectID {
			c.logger.Warn("provider switched identity outside the controller, signing out",
				"uid", cur.identity.SubjectID, "provider_uid", identity.SubjectID)
			return SignedOutState(), true
		}
		return cur, false
	})
}

// SignInWithPassword signs in an email and password identity. On return the
// session is either signed in with a verified email or signed out.
func (c *Controller) SignInWithPassword(ctx context.Context, email, password string) error {
	if err := (Credentials{Email: email, Password: password}).Validate(); err != nil {
		return validationError(err, "invalid sign in credentials")
	}

	return c.transition(ctx, nil, func(ctx context.Context, prev State) (State, error) {
		if _, err := c.provider.SignInWithPassword(ctx, email, password); err != nil {
			c.emit(ctx, ActivityEvent{
				EventType: ActivityEventLoginFailure,
				Provider:  ProviderPassword,
				Metadata:  map[string]any{"email": email, "error": err.Error()},
			})
			return SignedOutState(), err
		}

		// verification may have completed elsewhere since the token was issued
		identity, err := c.provider.Reload(ctx)
		if err != nil {
			c.signOutQuietly(ctx)
			return SignedOutState(), err
		}

		if !identity.EmailVerified {
			c.signOutQuietly(ctx)
			c.emit(ctx, ActivityEvent{
				EventType: ActivityEventLoginFailure,
				SubjectID: identity.SubjectID,
				Provider:  ProviderPassword,
				Metadata:  map[string]any{"email": email, "error": ErrEmailNotVerified.Error()},
			})
			return SignedOutState(), ErrEmailNotVerified
		}

		user, err := c.ensureUser(ctx, identity)
		if err != nil {
			c.signOutQuietly(ctx)
			return SignedOutState(), err
		}

		c.emit(ctx, ActivityEvent{
			EventType: ActivityEventLoginSuccess,
			SubjectID: identity.SubjectID,
			Provider:  ProviderPassword,
		})
		return SignedInState(identity, user), nil
	})
}

// SignUpWithPassword creates a provider account and its backend record,
// sends the verification email and signs out. The user must verify and
// then sign in explicitly.
func (c *Controller) SignUpWithPassword(ctx context.Context, input SignUpInput) error {
	if err := input.Validate(); err != nil {
		return validationError(err, "invalid sign up form")
	}

	return c.transition(ctx, nil, func(ctx context.Context, prev State) (State, error) {
		identity, err := c.provider.SignUpWithPassword(ctx, input.Email, input.Password)
		if err != nil {
			return SignedOutState(), err
		}

		record := NewApplicationUser{
			SubjectID:       identity.SubjectID,
			Email:           input.Email,
			Name:            input.Name,
			Role:            input.Role,
			IsEmailVerified: false,
		}
		if _, err := c.users.CreateUser(ctx, record); err != nil {
			c.logger.Error("failed to create user record after sign up", "uid", identity.SubjectID, "error", err)
		}

		if err := c.provider.SendEmailVerification(ctx); err != nil {
			c.logger.Warn("failed to send verification email", "uid", identity.SubjectID, "error", err)
		}

		c.signOutQuietly(ctx)

		c.emit(ctx, ActivityEvent{
			EventType: ActivityEventSignUp,
			SubjectID: identity.SubjectID,
			Provider:  ProviderPassword,
			Metadata:  map[string]any{"role": input.Role},
		})
		return SignedOutState(), nil
	})
}

// SignInWithFederated runs the interactive federated flow. A known subject
// is signed in; an unknown one is signed out and parked awaiting a role.
func (c *Controller) SignInWithFederated(ctx context.Context) error {
	return c.transition(ctx, nil, func(ctx context.Context, prev State) (State, error) {
		result, err := c.provider.SignInWithFederatedProvider(ctx)
		if err != nil {
			if !errors.Is(err, ErrUserCancelled) {
				c.signOutQuietly(ctx)
			}
			c.emit(ctx, ActivityEvent{
				EventType: ActivityEventLoginFailure,
				Provider:  ProviderGoogle,
				Metadata:  map[string]any{"error": err.Error()},
			})
			return SignedOutState(), err
		}
		if result == nil || result.Identity == nil {
			c.signOutQuietly(ctx)
			return SignedOutState(), fmt.Errorf("%w: federated sign-in returned no identity", ErrBackendUnavailable)
		}

		identity := result.Identity
		user, err := c.users.GetUserBySubjectID(ctx, identity.SubjectID)
		switch {
		case err == nil:
			user = c.syncVerification(ctx, identity, user)
			c.emit(ctx, ActivityEvent{
				EventType: ActivityEventSocialLogin,
				SubjectID: identity.SubjectID,
				Provider:  identity.SignInProvider,
			})
			return SignedInState(identity, user), nil

		case IsNotFound(err):
			// the provider session must not outlive an incomplete account
			c.signOutQuietly(ctx)
			pending := PendingFederatedSignup{
				SubjectID:   identity.SubjectID,
				Email:       identity.Email,
				DisplayName: identity.DisplayName,
				Credential:  result.Credential,
			}
			c.emit(ctx, ActivityEvent{
				EventType: ActivityEventRoleSelectionRequired,
				SubjectID: identity.SubjectID,
				Provider:  identity.SignInProvider,
			})
			return AwaitingRoleState(pending), nil

		default:
			c.signOutQuietly(ctx)
			return SignedOutState(), err
		}
	})
}

// CompleteFederatedSignUp creates the backend record for the pending
// federated identity with role, then re-establishes the provider session.
// Any failure leaves the session signed out.
func (c *Controller) CompleteFederatedSignUp(ctx context.Context, role Role) error {
	if !role.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	requirePending := func(cur State) error {
		if cur.Status() != StatusAwaitingRoleSelection {
			return fmt.Errorf("%w: no federated sign-up awaiting role selection", ErrInvalidTransition)
		}
		return nil
	}

	return c.transition(ctx, requirePending, func(ctx context.Context, prev State) (State, error) {
		pending := prev.Pending()

		record := NewApplicationUser{
			SubjectID:       pending.SubjectID,
			Email:           pending.Email,
			Name:            pending.Name(),
			Role:            role,
			IsEmailVerified: true,
		}

		// the record must exist before the provider re-admits the session
		user, err := c.users.CreateUser(ctx, record)
		if IsConflict(err) {
			user, err = c.existingRecord(ctx, pending.SubjectID, role)
		}
		if err != nil {
			c.signOutQuietly(ctx)
			return SignedOutState(), err
		}

		identity, err := c.provider.CompleteFederatedSignIn(ctx, pending.Credential)
		if err != nil {
			c.signOutQuietly(ctx)
			return SignedOutState(), err
		}
		if identity.SubjectID != pending.SubjectID {
			c.signOutQuietly(ctx)
			return SignedOutState(), fmt.Errorf("%w: credential resolved to a different subject", ErrInvalidCredentials)
		}

		c.emit(ctx, ActivityEvent{
			EventType: ActivityEventRoleSelectionCompleted,
			SubjectID: identity.SubjectID,
			Provider:  identity.SignInProvider,
			Metadata:  map[string]any{"role": user.Role},
		})
		return SignedInState(identity, user), nil
	})
}

// AbandonRoleSelection drops the pending federated sign-up without creating
// a backend record.
func (c *Controller) AbandonRoleSelection(ctx context.Context) error {
	if !c.opMu.TryLock() {
		return ErrTransitionInProgress
	}
	defer c.opMu.Unlock()

	var (
		err     error
		subject string
	)
	c.apply(func(cur State) (State, bool) {
		if cur.Status() != StatusAwaitingRoleSelection {
			err = fmt.Errorf("%w: no federated sign-up awaiting role selection", ErrInvalidTransition)
			return cur, false
		}
		subject = cur.pending.SubjectID
		return SignedOutState(), true
	})
	if err != nil {
		return err
	}

	c.emit(ctx, ActivityEvent{
		EventType:  ActivityEventRoleSelectionAbandoned,
		SubjectID:  subject,
		FromStatus: StatusAwaitingRoleSelection,
		ToStatus:   StatusSignedOut,
	})
	return nil
}

// SignOut clears the session from any state. It waits for an in-flight
// transition to finish first. Local state is cleared even when the provider
// call fails; that error is returned.
func (c *Controller) SignOut(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prev := c.State()
	err := c.provider.SignOut(ctx)
	if err != nil {
		c.logger.Warn("identity provider sign out failed", "error", err)
	}

	c.apply(func(State) (State, bool) {
		return SignedOutState(), true
	})

	var subject string
	if prev.identity != nil {
		subject = prev.identity.SubjectID
	} else if prev.pending != nil {
		subject = prev.pending.SubjectID
	}
	c.emit(ctx, ActivityEvent{
		EventType:  ActivityEventLogout,
		SubjectID:  subject,
		FromStatus: prev.Status(),
		ToStatus:   StatusSignedOut,
	})
	return err
}

// SendPasswordReset asks the provider to email a reset link. Unknown
// addresses are not disclosed.
func (c *Controller) SendPasswordReset(ctx context.Context, email string) error {
	if err := (PasswordResetInput{Email: email}).Validate(); err != nil {
		return validationError(err, "invalid password reset request")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.provider.SendPasswordReset(ctx, email); err != nil {
		return c.timeoutError(ctx, err)
	}

	c.emit(ctx, ActivityEvent{
		EventType: ActivityEventPasswordResetRequested,
		Metadata:  map[string]any{"email": email},
	})
	return nil
}

// ChangeEmail reauthenticates with the current password, changes the email
// and sends a verification message to the new address.
func (c *Controller) ChangeEmail(ctx context.Context, input ChangeEmailInput) error {
	if err := input.Validate(); err != nil {
		return validationError(err, "invalid change email form")
	}

	return c.exclusive(ctx, func(ctx context.Context, cur State) error {
		identity := cur.identity
		if err := c.provider.Reauthenticate(ctx, identity.Email, input.CurrentPassword); err != nil {
			return err
		}
		if err := c.provider.ChangeEmail(ctx, input.NewEmail); err != nil {
			return err
		}
		if err := c.provider.SendEmailVerification(ctx); err != nil {
			c.logger.Warn("failed to send verification email", "uid", identity.SubjectID, "error", err)
		}

		c.apply(func(cur State) (State, bool) {
			if cur.Status() != StatusSignedIn {
				return cur, false
			}
			next := SignedInState(cur.identity, cur.user)
			next.identity.Email = input.NewEmail
			next.identity.EmailVerified = false
			next.user.Email = input.NewEmail
			next.user.IsEmailVerified = false
			return next, true
		})

		c.emit(ctx, ActivityEvent{
			EventType: ActivityEventEmailChanged,
			SubjectID: identity.SubjectID,
			Provider:  identity.SignInProvider,
		})
		return nil
	})
}

// ChangePassword reauthenticates with the current password and sets a new
// one.
func (c *Controller) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	if err := input.Validate(); err != nil {
		return validationError(err, "invalid change password form")
	}

	return c.exclusive(ctx, func(ctx context.Context, cur State) error {
		identity := cur.identity
		if err := c.provider.Reauthenticate(ctx, identity.Email, input.CurrentPassword); err != nil {
			return err
		}
		if err := c.provider.ChangePassword(ctx, input.NewPassword); err != nil {
			return err
		}

		c.emit(ctx, ActivityEvent{
			EventType: ActivityEventPasswordChanged,
			SubjectID: identity.SubjectID,
			Provider:  identity.SignInProvider,
		})
		return nil
	})
}

// transition runs fn as a single session transition. The session is
// Authenticating while fn runs and takes the state fn returns.
func (c *Controller) transition(ctx context.Context, precondition func(State) error, fn func(ctx context.Context, prev State) (State, error)) error {
	if !c.opMu.TryLock() {
		return ErrTransitionInProgress
	}
	defer c.opMu.Unlock()

	var (
		prev     State
		startErr error
	)
	c.apply(func(cur State) (State, bool) {
		if c.closed {
			startErr = ErrControllerClosed
			return cur, false
		}
		if precondition != nil {
			if err := precondition(cur); err != nil {
				startErr = err
				return cur, false
			}
		} else if cur.Status() == StatusSignedIn {
			startErr = fmt.Errorf("%w: already signed in", ErrInvalidTransition)
			return cur, false
		}
		if err := validateTransition(cur.Status(), StatusAuthenticating); err != nil {
			startErr = err
			return cur, false
		}
		prev = cur
		c.inTransition = true
		return authenticatingState(), true
	})
	if startErr != nil {
		return startErr
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	next, err := fn(ctx, prev)
	err = c.timeoutError(ctx, err)

	c.finishTransition(ctx, next, &prev)
	return err
}

// exclusive runs fn while holding the transition lock, only when signed in
// with a password identity. The session status does not change.
func (c *Controller) exclusive(ctx context.Context, fn func(ctx context.Context, cur State) error) error {
	if !c.opMu.TryLock() {
		return ErrTransitionInProgress
	}
	defer c.opMu.Unlock()

	cur := c.State()
	if cur.Status() != StatusSignedIn {
		return ErrNotSignedIn
	}
	if cur.identity.IsFederated() {
		return fmt.Errorf("%w: %s accounts are managed by the federated provider", ErrInvalidTransition, cur.identity.SignInProvider)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	return c.timeoutError(ctx, fn(ctx, cur))
}

func (c *Controller) finishTransition(ctx context.Context, next State, prev *State) {
	if err := validateTransition(StatusAuthenticating, next.Status()); err != nil {
		c.logger.Error("discarding invalid session state", "state", next.String(), "error", err)
		next = SignedOutState()
	}

	c.apply(func(State) (State, bool) {
		c.inTransition = false
		return next, true
	})

	from := StatusAuthenticating
	if prev != nil {
		from = prev.Status()
	}
	event := ActivityEvent{
		EventType:  ActivityEventSessionChanged,
		FromStatus: from,
		ToStatus:   next.Status(),
	}
	if next.identity != nil {
		event.SubjectID = next.identity.SubjectID
		event.Provider = next.identity.SignInProvider
	} else if next.pending != nil {
		event.SubjectID = next.pending.SubjectID
	}
	c.emit(ctx, event)
}

// reconcile decides the state for an identity restored by the provider.
func (c *Controller) reconcile(ctx context.Context, identity *Identity) (State, error) {
	if !identity.IsFederated() && !identity.EmailVerified {
		c.logger.Info("restored identity is not verified, signing out", "uid", identity.SubjectID)
		c.signOutQuietly(ctx)
		return SignedOutState(), nil
	}

	if identity.IsFederated() {
		user, err := c.users.GetUserBySubjectID(ctx, identity.SubjectID)
		if err != nil {
			// without the credential the role selection cannot be resumed
			c.signOutQuietly(ctx)
			if IsNotFound(err) {
				return SignedOutState(), nil
			}
			return SignedOutState(), err
		}
		return SignedInState(identity, c.syncVerification(ctx, identity, user)), nil
	}

	user, err := c.ensureUser(ctx, identity)
	if err != nil {
		c.signOutQuietly(ctx)
		return SignedOutState(), err
	}
	return SignedInState(identity, user), nil
}

// ensureUser returns the backend record for a verified password identity,
// creating it when the sign-up time creation was lost.
func (c *Controller) ensureUser(ctx context.Context, identity *Identity) (*ApplicationUser, error) {
	if err := c.users.SyncEmailVerification(ctx, identity.SubjectID, true); err != nil && !IsNotFound(err) {
		c.logger.Warn("failed to sync email verification", "uid", identity.SubjectID, "error", err)
	}

	user, err := c.users.GetUserBySubjectID(ctx, identity.SubjectID)
	if err == nil {
		if !user.IsEmailVerified {
			user = user.Clone()
			user.IsEmailVerified = true
		}
		return user, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	c.logger.Warn("verified identity has no user record, creating it", "uid", identity.SubjectID)
	user, err = c.users.CreateUser(ctx, NewApplicationUserFromIdentity(identity, RoleUser, true))
	if IsConflict(err) {
		return c.users.GetUserBySubjectID(ctx, identity.SubjectID)
	}
	return user, err
}

// existingRecord resolves a conflicting create during federated completion
// as the record left behind by an earlier partial attempt.
func (c *Controller) existingRecord(ctx context.Context, subjectID string, role Role) (*ApplicationUser, error) {
	user, err := c.users.GetUserBySubjectID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if user.SubjectID != "" && user.SubjectID != subjectID {
		return nil, fmt.Errorf("%w: record belongs to another subject", ErrConflict)
	}
	if user.Role != role {
		c.logger.Warn("keeping role of existing user record", "uid", subjectID, "role", user.Role, "requested", role)
	}
	return user, nil
}

func (c *Controller) syncVerification(ctx context.Context, identity *Identity, user *ApplicationUser) *ApplicationUser {
	if !identity.EmailVerified || user.IsEmailVerified {
		return user
	}
	if err := c.users.SyncEmailVerification(ctx, identity.SubjectID, true); err != nil {
		c.logger.Warn("failed to sync email verification", "uid", identity.SubjectID, "error", err)
		return user
	}
	user = user.Clone()
	user.IsEmailVerified = true
	return user
}

// signOutQuietly ends the provider session even when ctx already expired.
func (c *Controller) signOutQuietly(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signOutCleanupTimeout)
	defer cancel()

	if err := c.provider.SignOut(ctx); err != nil {
		c.logger.Warn("identity provider sign out failed", "error", err)
	}
}

// apply computes and stores the next state atomically, then notifies
// watchers in order.
func (c *Controller) apply(fn func(cur State) (State, bool)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	next, changed := fn(c.state)
	if !changed {
		c.mu.Unlock()
		return
	}
	c.state = next
	watchers := make([]watcher, len(c.watchers))
	copy(watchers, c.watchers)
	c.mu.Unlock()

	for _, w := range watchers {
		w.fn(next)
	}
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Controller) timeoutError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		if !errors.Is(err, ErrOperationTimeout) {
			return fmt.Errorf("%w: %w", ErrOperationTimeout, err)
		}
	}
	return err
}

func (c *Controller) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = c.now()
	}
	if err := c.activitySink.Record(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Error("failed to record activity event", "event", event.EventType, "error", err)
	}
}
