// Package firebase implements auth.IdentityProvider on top of the Firebase
// Auth REST APIs (Identity Toolkit and securetoken).
//
// ID tokens are verified against the securetoken signing keys, which are
// fetched with keyfunc and refreshed in the background. Sessions survive
// restarts through a SessionPersistence; call Restore before starting the
// session controller to pick one up.
//
// Federated sign-in is delegated to a Federated implementation, usually a
// social.Authenticator, whose sealed token doubles as the reusable credential
// handed back to the controller.
package firebase
