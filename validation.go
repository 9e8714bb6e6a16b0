package auth

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// MinPasswordLength is the shortest password accepted before any request is
// sent to the identity provider.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	emailRules = []validation.Rule{
		validation.Required.Error("email is required"),
		validation.Match(emailPattern).Error("must be a valid email address"),
	}
	passwordRules = []validation.Rule{
		validation.Required.Error("password is required"),
		validation.RuneLength(MinPasswordLength, 0).Error("password must be at least 6 characters"),
	}
)

// Validate checks the sign-up form.
func (in SignUpInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required.Error("name is required")),
		validation.Field(&in.Email, emailRules...),
		validation.Field(&in.Password, passwordRules...),
		validation.Field(&in.PasswordConfirmation,
			validation.Required.Error("password confirmation is required"),
			validation.In(in.Password).Error("passwords do not match"),
		),
		validation.Field(&in.Role,
			validation.Required.Error("role is required"),
			validation.In(RoleUser, RoleRestaurantOwner).Error("role must be user or restaurantOwner"),
		),
	)
}

// Credentials is the password sign-in form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the sign-in form. Only presence and email shape are
// checked so legacy short passwords can still sign in.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, emailRules...),
		validation.Field(&c.Password, validation.Required.Error("password is required")),
	)
}

// ValidateEmail checks a single email address.
func ValidateEmail(email string) error {
	return validation.Validate(email, emailRules...)
}

// ValidatePassword checks a single password.
func ValidatePassword(password string) error {
	return validation.Validate(password, passwordRules...)
}

// PasswordResetInput is the forgot password form.
type PasswordResetInput struct {
	Email string `json:"email"`
}

// Validate checks the forgot password form.
func (in PasswordResetInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules...),
	)
}

// ChangeEmailInput is the change email form.
type ChangeEmailInput struct {
	CurrentPassword string `json:"current_password"`
	NewEmail        string `json:"new_email"`
}

// Validate checks the change email form.
func (in ChangeEmailInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, validation.Required.Error("current password is required")),
		validation.Field(&in.NewEmail, emailRules...),
	)
}

// ChangePasswordInput is the change password form.
type ChangePasswordInput struct {
	CurrentPassword      string `json:"current_password"`
	NewPassword          string `json:"new_password"`
	PasswordConfirmation string `json:"confirm_password"`
}

// Validate checks the change password form.
func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, passwordRules...),
		validation.Field(&in.NewPassword, passwordRules...),
		validation.Field(&in.PasswordConfirmation,
			validation.Required.Error("password confirmation is required"),
			validation.In(in.NewPassword).Error("passwords do not match"),
		),
	)
}

// validationError converts ozzo errors into a categorized error.
func validationError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return goerrors.FromOzzoValidation(err, msg).
		WithTextCode("VALIDATION_FAILED").
		WithCode(goerrors.CodeBadRequest)
}
