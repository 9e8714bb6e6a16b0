package auth

import (
	"fmt"
	"strings"
)

// Role is the application role stored on the backend record
type Role string

const (
	// RoleUser browses listings and manages an account profile
	RoleUser Role = "user"
	// RoleRestaurantOwner manages a single restaurant listing
	RoleRestaurantOwner Role = "restaurantOwner"
)

// View is the landing area a role is routed to.
type View string

const (
	ViewSignIn     View = "sign-in"
	ViewChooseRole View = "choose-role"
	ViewAccount    View = "account"
	ViewOwner      View = "owner"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleRestaurantOwner:
		return true
	default:
		return false
	}
}

// CanManageListing reports whether the role may create or edit a listing
func (r Role) CanManageListing() bool {
	return r == RoleRestaurantOwner
}

// HomeView returns where a user with this role lands after sign-in
func (r Role) HomeView() View {
	if r == RoleRestaurantOwner {
		return ViewOwner
	}
	return ViewAccount
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts the canonical values and a few loose spellings.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "restaurantowner", "restaurant_owner", "restaurant-owner", "owner":
		return RoleRestaurantOwner, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidRole, s)
}

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleUser, RoleRestaurantOwner}
}
