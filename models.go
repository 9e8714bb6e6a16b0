package auth

import (
	"time"
)

// SignInProvider names the method an identity used to authenticate.
type SignInProvider = string

const (
	// ProviderPassword is an email and password identity
	ProviderPassword SignInProvider = "password"
	// ProviderGoogle is a Google federated identity
	ProviderGoogle SignInProvider = "google.com"
)

// FederatedCredential is an opaque, reusable proof of a completed federated
// sign-in. Only the identity provider that issued it can interpret it.
type FederatedCredential string

// Identity is the provider's view of the authenticated principal. It is
// read-only to this module.
type Identity struct {
	SubjectID      string              `json:"uid"`
	Email          string              `json:"email"`
	DisplayName    string              `json:"display_name,omitempty"`
	EmailVerified  bool                `json:"email_verified"`
	SignInProvider SignInProvider      `json:"sign_in_provider"`
	Credential     FederatedCredential `json:"-"`
}

// IsFederated reports whether the identity was produced by a federated
// provider.
func (i *Identity) IsFederated() bool {
	return i != nil && i.SignInProvider != "" && i.SignInProvider != ProviderPassword
}

// Name returns the display name, falling back to the email.
func (i *Identity) Name() string {
	if i == nil {
		return ""
	}
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// Clone returns a copy safe to hand to observers.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// ApplicationUser is the backend record for an identity.
type ApplicationUser struct {
	ID              string     `json:"_id,omitempty"`
	SubjectID       string     `json:"uid"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	CreatedAt       *time.Time `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

// Clone returns a copy safe to hand to observers.
func (u *ApplicationUser) Clone() *ApplicationUser {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// NewApplicationUser is the payload used to create a backend record.
type NewApplicationUser struct {
	SubjectID       string `json:"uid"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            Role   `json:"role"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

// NewApplicationUserFromIdentity builds the create payload for identity.
func NewApplicationUserFromIdentity(identity *Identity, role Role, verified bool) NewApplicationUser {
	return NewApplicationUser{
		SubjectID:       identity.SubjectID,
		Email:           identity.Email,
		Name:            identity.Name(),
		Role:            role,
		IsEmailVerified: verified,
	}
}

// FederatedResult is the outcome of an interactive federated sign-in.
type FederatedResult struct {
	Identity   *Identity
	Credential FederatedCredential
}

// PendingFederatedSignup holds a federated identity that has no backend
// record yet, waiting for the user to pick a role.
type PendingFederatedSignup struct {
	SubjectID   string
	Email       string
	DisplayName string
	Credential  FederatedCredential
}

// Name returns the display name, falling back to the email.
func (p *PendingFederatedSignup) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Email
}

// Identity rebuilds the federated identity for this pending signup.
func (p *PendingFederatedSignup) Identity() *Identity {
	return &Identity{
		SubjectID:      p.SubjectID,
		Email:          p.Email,
		DisplayName:    p.DisplayName,
		EmailVerified:  true,
		SignInProvider: ProviderGoogle,
		Credential:     p.Credential,
	}
}

// SignUpInput collects the password sign-up form.
type SignUpInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"confirm_password"`
	Role                 Role   `json:"role"`
}
