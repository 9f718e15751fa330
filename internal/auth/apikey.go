package auth

import (
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the HTTP header name for API key authentication.
const APIKeyHeader = "X-API-Key"

type apiKey struct {
	key  []byte
	name string
	role Role
}

// APIKeyAuthenticator authenticates requests using API keys provided
// in the X-API-Key header with constant-time comparison.
type APIKeyAuthenticator struct {
	keys []apiKey
}

// NewAPIKeyAuthenticator creates a new API key authenticator from a
// configuration string in the format "key1:name1[:role],key2:name2".
// The role is "keeper" or "reader" and defaults to "keeper".
func NewAPIKeyAuthenticator(keysConfig string) (*APIKeyAuthenticator, error) {
	creds, err := parseCredentials("apikey auth", "key", "name", keysConfig)
	if err != nil {
		return nil, err
	}

	keys := make([]apiKey, 0, len(creds))
	for _, c := range creds {
		keys = append(keys, apiKey{key: []byte(c.principal), name: c.secret, role: c.role})
	}

	return &APIKeyAuthenticator{keys: keys}, nil
}

// Authenticate validates the X-API-Key header against every configured
// key so that the time taken does not depend on which key matched.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return nil, ErrUnauthenticated
	}

	var match *apiKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare([]byte(presented), a.keys[i].key) == 1 && match == nil {
			match = &a.keys[i]
		}
	}

	if match == nil {
		return nil, ErrInvalidAPIKey
	}

	return &AuthInfo{
		Method:  AuthMethodAPIKey,
		Subject: match.name,
		Role:    match.role,
	}, nil
}

// Method returns the authentication method type.
func (a *APIKeyAuthenticator) Method() AuthMethod {
	return AuthMethodAPIKey
}
