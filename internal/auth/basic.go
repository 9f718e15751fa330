package auth

import (
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

type basicUser struct {
	hash []byte
	role Role
}

// BasicAuthenticator authenticates requests using HTTP Basic authentication
// with bcrypt-hashed passwords.
type BasicAuthenticator struct {
	users map[string]basicUser
	// dummyHash is compared against for unknown users. It shares the cost
	// of the configured hashes so both failure paths take equally long.
	dummyHash []byte
}

// NewBasicAuthenticator creates a new Basic authenticator from a
// configuration string in the format "user1:hash1[:role],user2:hash2".
// The role is "keeper" or "reader" and defaults to "keeper".
func NewBasicAuthenticator(usersConfig string) (*BasicAuthenticator, error) {
	creds, err := parseCredentials("basic auth", "username", "hash", usersConfig)
	if err != nil {
		return nil, err
	}

	users := make(map[string]basicUser, len(creds))
	for _, c := range creds {
		users[c.principal] = basicUser{hash: []byte(c.secret), role: c.role}
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("vault-dummy-password"), dummyCost(creds))
	if err != nil {
		return nil, fmt.Errorf("basic auth: generating dummy hash: %w", err)
	}

	return &BasicAuthenticator{users: users, dummyHash: dummy}, nil
}

// dummyCost is the cost of the first configured hash, or bcrypt's default
// when that hash cannot be read.
func dummyCost(creds []credential) int {
	cost, err := bcrypt.Cost([]byte(creds[0].secret))
	if err != nil {
		return bcrypt.DefaultCost
	}
	return cost
}

// Authenticate extracts Basic auth credentials from the request, looks up
// the user and verifies the password against the stored bcrypt hash.
// Unknown users and wrong passwords fail with the same error.
func (a *BasicAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrUnauthenticated
	}

	user, exists := a.users[username]
	hash := user.hash
	if !exists {
		hash = a.dummyHash
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !exists {
		return nil, fmt.Errorf("%w: bad username or password", ErrInvalidCredentials)
	}

	return &AuthInfo{
		Method:  AuthMethodBasic,
		Subject: username,
		Role:    user.role,
	}, nil
}

// Method returns the authentication method type.
func (a *BasicAuthenticator) Method() AuthMethod {
	return AuthMethodBasic
}
