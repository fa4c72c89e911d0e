package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jlebervet/mail-manager/internal/errors"
)

// AssertionVerifier extracts a verified external assertion from a raw bearer
// token. Verification itself is the identity provider's business; the
// reconciler trusts whatever claims a verifier hands back.
type AssertionVerifier interface {
	Verify(ctx context.Context, raw string) (*ExternalAssertion, error)
}

// SharedKeyVerifier validates provider tokens signed with a shared key and
// extracts the subject/email/name claims. The provider publishes the subject
// as "oid" and the email as "preferred_username", falling back to "email"
// then "upn" for guest tenants.
type SharedKeyVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewSharedKeyVerifier creates a verifier for provider tokens
func NewSharedKeyVerifier(secret, issuer, audience string) *SharedKeyVerifier {
	return &SharedKeyVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Verify implements AssertionVerifier
func (v *SharedKeyVerifier) Verify(_ context.Context, raw string) (*ExternalAssertion, error) {
	opts := []jwt.ParserOption{}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: not a provider token", apperrors.ErrUnauthenticated)
	}

	assertion := &ExternalAssertion{
		SubjectID: stringClaim(claims, "oid"),
		Email:     firstStringClaim(claims, "preferred_username", "email", "upn"),
		Name:      stringClaim(claims, "name"),
	}
	if assertion.SubjectID == "" {
		assertion.SubjectID = stringClaim(claims, "sub")
	}
	if assertion.Name == "" {
		assertion.Name = assertion.Email
	}
	return assertion, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func firstStringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if v := stringClaim(claims, key); v != "" {
			return v
		}
	}
	return ""
}
