// Package models defines the domain types shared by the server, the
// client library and the CLI.
//
// json tags describe the REST wire format; the same structs are decoded by
// the client package, so a field rename here is a protocol change.
package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Role is the access level of a dashboard user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleViewer
}

// MinPasswordLength is enforced on every password change.
const MinPasswordLength = 6

// User is a dashboard account.
type User struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	Email              *string   `json:"email,omitempty"`
	Role               Role      `json:"role"`
	MustChangePassword bool      `json:"must_change_password"`
	PasswordHash       string    `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// IsAdmin is the role gate for every write operation.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// LoginRequest is the body of POST /api/auth/login. Username may also be
// the account email.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// Validate checks the required fields.
func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	return nil
}

// LoginResponse is what a successful login returns.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// ChangePasswordRequest is the body of POST /api/auth/change-password.
type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// Validate enforces the minimum length.
func (r *ChangePasswordRequest) Validate() error {
	if utf8.RuneCountInString(r.NewPassword) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// CreateUserRequest is sent by an admin. The password is always generated
// server side; username falls back to the email.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role,omitempty"`
}

// Validate normalizes defaults and checks the email.
func (r *CreateUserRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)

	if r.Email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	if r.Username == "" {
		r.Username = r.Email
	}
	if r.Role == "" {
		r.Role = RoleViewer
	}
	if !r.Role.Valid() {
		return fmt.Errorf("role must be admin or viewer")
	}
	return nil
}

// CreatedUser is returned once, right after creation. Password is the
// generated one-time password; it is never retrievable again.
type CreatedUser struct {
	Password string `json:"password"`
	User     *User  `json:"user,omitempty"`
}

// UpdateUserRequest is a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *Role   `json:"role,omitempty"`
}

// Validate checks the fields that are present.
func (r *UpdateUserRequest) Validate() error {
	if r.Username != nil {
		trimmed := strings.TrimSpace(*r.Username)
		if trimmed == "" {
			return fmt.Errorf("username cannot be empty")
		}
		r.Username = &trimmed
	}
	if r.Email != nil {
		trimmed := strings.TrimSpace(*r.Email)
		if trimmed != "" {
			if _, err := mail.ParseAddress(trimmed); err != nil {
				return fmt.Errorf("invalid email address")
			}
		}
		r.Email = &trimmed
	}
	if r.Password != nil && utf8.RuneCountInString(*r.Password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if r.Role != nil && !r.Role.Valid() {
		return fmt.Errorf("role must be admin or viewer")
	}
	return nil
}
