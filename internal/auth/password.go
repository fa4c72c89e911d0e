package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret derives a salted one-way hash from a legacy credential secret.
// Cleartext storage is never accepted.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// CompareSecret reports whether the secret matches the stored hash
func CompareSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
