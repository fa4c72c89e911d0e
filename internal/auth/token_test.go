package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jlebervet/mail-manager/internal/errors"
	"github.com/jlebervet/mail-manager/internal/models"
)

func testAccount() *models.Account {
	return &models.Account{
		ID:    "acc-1",
		Email: "agent@ville.fr",
		Name:  "Paul Agent",
		Role:  models.RoleUser,
	}
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	// Arrange
	manager := NewTokenManager("test-secret", time.Hour)

	// Act
	raw, err := manager.Issue(testAccount())
	require.NoError(t, err)

	claims, err := manager.Parse(raw)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "agent@ville.fr", claims.Email)
	assert.Equal(t, "Paul Agent", claims.Name)
	assert.Equal(t, "user", claims.Role)
}

func TestTokenManager_RejectsExpiredToken(t *testing.T) {
	// Arrange: issue a token in the past, parse at current time
	manager := NewTokenManager("test-secret", time.Hour)
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := manager.Issue(testAccount())
	require.NoError(t, err)
	manager.now = time.Now

	// Act
	_, err = manager.Parse(raw)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	// Arrange
	issuer := NewTokenManager("secret-a", time.Hour)
	verifier := NewTokenManager("secret-b", time.Hour)
	raw, err := issuer.Issue(testAccount())
	require.NoError(t, err)

	// Act
	_, err = verifier.Parse(raw)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	manager := NewTokenManager("test-secret", time.Hour)
	_, err := manager.Parse("not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestNewTokenManager_DefaultsTTL(t *testing.T) {
	manager := NewTokenManager("test-secret", 0)
	assert.Equal(t, DefaultSessionTTL, manager.ttl)
}
