package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Verifier verifies JWT tokens and maps them to user ids
type Verifier struct {
	jwksManager *JWKSManager
	jwksURL     string
	issuer      string
}

// NewVerifier creates a new JWT verifier
func NewVerifier(jwksManager *JWKSManager, jwksURL, issuer string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		jwksURL:     jwksURL,
		issuer:      issuer,
	}
}

// Verify validates a bearer token and returns the caller's user id. Subjects
// that are not UUIDs are mapped to a stable v5 UUID so any identity provider
// subject format yields the same user id on every request.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (uuid.UUID, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	sub := token.Subject()
	if sub == "" {
		return uuid.Nil, fmt.Errorf("token missing subject claim")
	}

	return UserIDFromSubject(sub), nil
}

// UserIDFromSubject maps an identity provider subject to a user id
func UserIDFromSubject(sub string) uuid.UUID {
	if id, err := uuid.Parse(sub); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sub))
}
