// Package identity verifies externally-issued identity assertions (Firebase
// ID tokens and email/password credentials) and normalizes them.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrExternalAuth wraps every rejection or transport failure from the provider.
var ErrExternalAuth = errors.New("external authentication failed")

// Identity is the normalized result of a successful verification.
type Identity struct {
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
}

// Verifier is what the login path depends on.
type Verifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Identity, error)
}

// Token is a verified token that can expose its claims.
// It is satisfied by *oidc.IDToken and by test fakes.
type Token interface {
	Claims(v interface{}) error
}

// TokenVerifier checks a raw ID token's signature, issuer and audience.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// providerClaims are the ID token claims Firebase issues.
type providerClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func fromToken(tok Token) (*Identity, error) {
	var c providerClaims
	if err := tok.Claims(&c); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrExternalAuth, err)
	}
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: token has no email claim", ErrExternalAuth)
	}
	name := c.Name
	if name == "" {
		name = email
	}
	return &Identity{
		Email:         email,
		DisplayName:   name,
		PhotoURL:      c.Picture,
		EmailVerified: c.EmailVerified,
	}, nil
}
