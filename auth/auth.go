// Package auth resolves bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	// DefaultCookie is the cookie holding the access token when no
	// Authorization header is sent.
	DefaultCookie = "accessToken"
)

var (
	// ErrNoToken means the request carried no access token.
	ErrNoToken = errors.New("no access token")

	// ErrInvalidToken means the token was rejected or resolved to no user.
	ErrInvalidToken = errors.New("invalid access token")
)

// Identity is the provider account behind a token.
type Identity struct {
	ID       string
	Email    string
	Provider string
}

// Gateway turns an access token into an Identity.
type Gateway interface {
	Lookup(ctx context.Context, token string) (*Identity, error)
}

// TokenFromRequest returns the bearer token of r, falling back to the named
// cookie. It returns ErrNoToken when neither is present.
func TokenFromRequest(r *http.Request, cookie string) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if t, ok := strings.CutPrefix(h, "Bearer "); ok && strings.TrimSpace(t) != "" {
			return strings.TrimSpace(t), nil
		}
	}

	if cookie == "" {
		cookie = DefaultCookie
	}
	if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
		return c.Value, nil
	}

	return "", ErrNoToken
}
