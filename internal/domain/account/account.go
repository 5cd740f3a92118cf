// Package account contains the authenticated identity and the auth payloads.
package account

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// User is the authenticated scout.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Club      string `json:"club,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Credentials is the login form.
type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// Validate checks the credentials before they are sent.
func (c Credentials) Validate() error { return validateStruct(c) }

// Tokens is a bearer token and the refresh token that renews it.
type Tokens struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Session is the login answer.
type Session struct {
	User User `json:"user"`
	Tokens
}

// ProfileUpdate is a partial profile change. Empty fields are left untouched.
type ProfileUpdate struct {
	Name      string `json:"name,omitempty"      validate:"omitempty,min=1,max=120"`
	Club      string `json:"club,omitempty"      validate:"omitempty,max=120"`
	AvatarURL string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// Validate checks the update before it is sent.
func (p ProfileUpdate) Validate() error { return validateStruct(p) }

// PasswordChange replaces the password of the current user.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6,max=128,nefield=CurrentPassword"`
}

// Validate checks the change before it is sent.
func (p PasswordChange) Validate() error { return validateStruct(p) }

var validate = newValidator() //nolint:gochecknoglobals // validator caches struct metadata

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
