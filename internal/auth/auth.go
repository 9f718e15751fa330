// Package auth provides authentication for the vault API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// AuthMethod represents the authentication method used.
type AuthMethod string

const (
	// AuthMethodNone indicates no authentication.
	AuthMethodNone AuthMethod = "none"
	// AuthMethodBasic indicates HTTP Basic authentication.
	AuthMethodBasic AuthMethod = "basic"
	// AuthMethodAPIKey indicates API key authentication.
	AuthMethodAPIKey AuthMethod = "apikey"
	// AuthMethodMulti indicates multi-method authentication.
	AuthMethodMulti AuthMethod = "multi"
)

// Role is the vault permission level granted to a principal.
type Role string

const (
	// RoleReader may list, look up and value items.
	RoleReader Role = "reader"
	// RoleKeeper may additionally insert, revalue and remove items.
	RoleKeeper Role = "keeper"
)

// ParseRole parses a role name. An empty name yields RoleKeeper.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleKeeper:
		return RoleKeeper, nil
	case RoleReader:
		return RoleReader, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// AuthInfo holds authenticated identity information.
type AuthInfo struct {
	Method  AuthMethod
	Subject string
	Role    Role
}

// CanMutate reports whether the principal may change vault contents.
func (i *AuthInfo) CanMutate() bool {
	return i.Role == RoleKeeper
}

// SubjectFromContext returns the authenticated subject, or "anonymous"
// when the request was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	if info, ok := FromContext(ctx); ok && info.Subject != "" {
		return info.Subject
	}
	return "anonymous"
}

// Authenticator validates a request and returns auth info.
type Authenticator interface {
	Authenticate(r *http.Request) (*AuthInfo, error)
	Method() AuthMethod
}

// Sentinel errors for authentication failures.
var (
	ErrUnauthenticated    = errors.New("unauthenticated: no credentials provided")
	ErrInvalidAPIKey      = errors.New("invalid API key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden: role does not permit this operation")
	ErrUnknownRole        = errors.New("unknown role")
)

// contextKey is the type for context keys in this package.
type contextKey string

// authInfoKey is the context key for AuthInfo.
const authInfoKey contextKey = "auth_info"

// FromContext retrieves AuthInfo from the context.
func FromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authInfoKey).(*AuthInfo)
	return info, ok
}

// WithAuthInfo stores AuthInfo in the context.
func WithAuthInfo(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authInfoKey, info)
}
