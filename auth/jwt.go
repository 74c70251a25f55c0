package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAudience is the audience of tokens issued to signed in users.
const DefaultAudience = "authenticated"

// Claims are the fields read from a provider access token.
type Claims struct {
	Email       string `json:"email"`
	AppMetadata struct {
		Provider string `json:"provider"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

// JWT verifies HS256 access tokens locally with the project's signing secret.
type JWT struct {
	secret   []byte
	audience string
}

// NewJWT returns a verifier. An empty audience disables the audience check.
func NewJWT(secret, audience string) *JWT {
	return &JWT{secret: []byte(secret), audience: audience}
}

// Lookup verifies token and returns the identity in its claims.
func (j *JWT) Lookup(ctx context.Context, token string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return &Identity{ID: claims.Subject, Email: claims.Email, Provider: claims.AppMetadata.Provider}, nil
}

// Sign issues a token for claims. It is used by tests and local tooling.
func (j *JWT) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
