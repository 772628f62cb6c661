package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/tourneyhub/tourneyhub/client-core/internal/models"
)

// ErrInvalidToken is returned when a token is rejected or carries no usable subject.
var ErrInvalidToken = errors.New("invalid identity token")

// Token is a minimal interface for token payloads that allows extracting claims.
// It is satisfied by *oidc.IDToken and by test fakes.
type Token interface {
	Claims(v interface{}) error
}

// Verifier checks a raw id token and returns its payload.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// OIDCVerifier wraps the OIDC provider and token verifier
type OIDCVerifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier creates a new OIDC verifier for the given issuer and client ID
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &OIDCVerifier{provider: provider, verifier: verifier}, nil
}

// Verify verifies the provided raw ID token using the provided context.
// Any rejection of the token itself is ErrInvalidToken; a cancelled context
// or a failed keyset fetch is returned as is.
func (v *OIDCVerifier) Verify(ctx context.Context, raw string) (Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		if ctx.Err() != nil || isKeySetFault(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return idToken, nil
}

// go-oidc flattens keyset errors with %v, so only the message identifies them.
func isKeySetFault(err error) bool {
	return strings.Contains(err.Error(), "fetching keys")
}

type identityClaims struct {
	Sub         string `json:"sub"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Exp         int64  `json:"exp"`
}

// IdentityFromToken maps token claims onto an Identity.
func IdentityFromToken(tok Token) (*models.Identity, error) {
	id, _, err := parseClaims(tok)
	return id, err
}

// parseClaims also returns the token expiry; zero when the token has none.
func parseClaims(tok Token) (*models.Identity, time.Time, error) {
	var c identityClaims
	if err := tok.Claims(&c); err != nil {
		return nil, time.Time{}, fmt.Errorf("%w: parse claims: %v", ErrInvalidToken, err)
	}
	if c.Sub == "" {
		return nil, time.Time{}, ErrInvalidToken
	}
	var exp time.Time
	if c.Exp > 0 {
		exp = time.Unix(c.Exp, 0)
	}
	return &models.Identity{ID: c.Sub, Email: c.Email, PhoneNumber: c.PhoneNumber}, exp, nil
}
