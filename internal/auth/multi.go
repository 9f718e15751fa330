package auth

import (
	"errors"
	"net/http"
)

// MultiAuthenticator accepts a request as soon as one of its members does.
// A member that finds no credentials of its kind (ErrUnauthenticated)
// passes the request on; a member that finds bad credentials ends the
// chain, so a wrong API key is never rescued by a later Basic header.
type MultiAuthenticator struct {
	members []Authenticator
}

// NewMultiAuthenticator chains the given authenticators in order. Nil
// entries are dropped.
func NewMultiAuthenticator(authenticators ...Authenticator) *MultiAuthenticator {
	members := make([]Authenticator, 0, len(authenticators))
	for _, a := range authenticators {
		if a != nil {
			members = append(members, a)
		}
	}
	return &MultiAuthenticator{members: members}
}

// Authenticate returns the first member's successful result. The role and
// method of the accepting member are kept on the returned AuthInfo.
func (a *MultiAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	for _, member := range a.members {
		info, err := member.Authenticate(r)
		switch {
		case err == nil:
			return info, nil
		case !errors.Is(err, ErrUnauthenticated):
			return nil, err
		}
	}

	return nil, ErrUnauthenticated
}

// Method returns the authentication method type.
func (a *MultiAuthenticator) Method() AuthMethod {
	return AuthMethodMulti
}

// Methods lists the methods of the chained authenticators in order.
func (a *MultiAuthenticator) Methods() []AuthMethod {
	methods := make([]AuthMethod, len(a.members))
	for i, member := range a.members {
		methods[i] = member.Method()
	}
	return methods
}
