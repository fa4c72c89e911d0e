package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jlebervet/mail-manager/internal/errors"
)

func signProviderToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestSharedKeyVerifier_ExtractsClaims(t *testing.T) {
	// Arrange
	verifier := NewSharedKeyVerifier("provider-secret", "", "")
	raw := signProviderToken(t, "provider-secret", jwt.MapClaims{
		"oid":                "oid-1",
		"preferred_username": "maire@ville.fr",
		"name":               "Anne Maire",
	})

	// Act
	assertion, err := verifier.Verify(context.Background(), raw)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "oid-1", assertion.SubjectID)
	assert.Equal(t, "maire@ville.fr", assertion.Email)
	assert.Equal(t, "Anne Maire", assertion.Name)
}

func TestSharedKeyVerifier_EmailFallbackOrder(t *testing.T) {
	verifier := NewSharedKeyVerifier("provider-secret", "", "")
	raw := signProviderToken(t, "provider-secret", jwt.MapClaims{
		"sub":   "sub-1",
		"email": "agent@ville.fr",
	})

	assertion, err := verifier.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", assertion.SubjectID, "oid absent, sub claim is the fallback")
	assert.Equal(t, "agent@ville.fr", assertion.Email)
	assert.Equal(t, "agent@ville.fr", assertion.Name, "name defaults to the email")
}

func TestSharedKeyVerifier_RejectsWrongSecret(t *testing.T) {
	verifier := NewSharedKeyVerifier("provider-secret", "", "")
	raw := signProviderToken(t, "other-secret", jwt.MapClaims{"oid": "oid-1"})

	_, err := verifier.Verify(context.Background(), raw)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestSharedKeyVerifier_EnforcesIssuerAndAudience(t *testing.T) {
	verifier := NewSharedKeyVerifier("provider-secret", "https://login.example.com", "mail-manager")

	wrongIssuer := signProviderToken(t, "provider-secret", jwt.MapClaims{
		"oid": "oid-1",
		"iss": "https://evil.example.com",
		"aud": "mail-manager",
	})
	_, err := verifier.Verify(context.Background(), wrongIssuer)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	valid := signProviderToken(t, "provider-secret", jwt.MapClaims{
		"oid": "oid-1",
		"iss": "https://login.example.com",
		"aud": "mail-manager",
	})
	_, err = verifier.Verify(context.Background(), valid)
	assert.NoError(t, err)
}
