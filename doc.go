// Package auth keeps the signed in session of the restaurants client in
// step with an external identity provider and the backend user store.
//
// Session lifecycle:
//   - Controller owns a single State: signed out, authenticating, signed in,
//     or awaiting role selection. Only one sign-in style transition runs at a
//     time; a second one fails with ErrTransitionInProgress while SignOut
//     waits its turn.
//   - A password identity is signed in only once its email is verified. The
//     backend record is created at sign-up and recreated on sign-in when it
//     went missing.
//   - A federated identity without a backend record is parked in
//     AwaitingRoleSelection with a sealed credential. CompleteFederatedSignUp
//     creates the record first and only then re-admits the provider session.
//
// Provider notifications:
//   - Start takes the single IdentityProvider subscription and reconciles a
//     restored identity. Outside a transition a nil identity, or a different
//     subject, signs the session out.
//
// Activity sinks:
//   - ActivitySink receives login, sign-up, role selection, logout and
//     credential change events plus every status change. Sinks run best-effort
//     (errors are logged) so they never block a transition.
//
// Commands:
//   - SignInHandler, RegisterUserHandler, InitializePasswordResetHandler and
//     AccountUpdateHandler validate form messages and drive the Controller
//     through PasswordSessions.
package auth
