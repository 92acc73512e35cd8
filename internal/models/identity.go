package models

import "strings"

// User is the profile the gateway returns on login.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id"`
}

// Identity is the authenticated session held by the dashboard.
type Identity struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Valid reports whether both halves of the identity are present.
func (i *Identity) Valid() bool {
	return i != nil && strings.TrimSpace(i.Token) != "" && strings.TrimSpace(i.User.ID) != ""
}

// LoginRequest holds credentials for authenticating against the gateway.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a dashboard account on the gateway.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role,omitempty" validate:"omitempty,max=32"`
	SchoolID string `json:"school_id,omitempty"`
}

// LoginResponse is returned by the gateway login endpoint.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}
