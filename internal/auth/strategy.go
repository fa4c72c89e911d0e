package auth

import (
	"context"
	"errors"
	"fmt"

	apperrors "github.com/jlebervet/mail-manager/internal/errors"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
)

// Strategy resolves a raw bearer token to an account.
//
// Strategies replace the original system's nested try/except fallback chains
// with an explicit ordered list evaluated short-circuit.
type Strategy func(ctx context.Context, token string) (*models.Account, error)

// Chain evaluates strategies in order. A strategy failing with
// ErrUnauthenticated hands over to the next one; any other failure (conflict,
// store outage) surfaces immediately. All strategies exhausted means the
// token is simply not ours.
func Chain(strategies ...Strategy) Strategy {
	return func(ctx context.Context, token string) (*models.Account, error) {
		for _, strategy := range strategies {
			account, err := strategy(ctx, token)
			if err == nil {
				return account, nil
			}
			if !errors.Is(err, apperrors.ErrUnauthenticated) {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%w: no strategy accepted the token", apperrors.ErrUnauthenticated)
	}
}

// ExternalStrategy verifies a provider assertion and reconciles it
func ExternalStrategy(verifier AssertionVerifier, reconciler *Reconciler) Strategy {
	return func(ctx context.Context, token string) (*models.Account, error) {
		assertion, err := verifier.Verify(ctx, token)
		if err != nil {
			return nil, err
		}
		return reconciler.ResolveAssertion(ctx, *assertion)
	}
}

// SessionStrategy accepts locally-issued session tokens. The account is
// re-read so a role change takes effect before the token expires.
func SessionStrategy(tokens *TokenManager, accounts repository.AccountRepository) Strategy {
	return func(ctx context.Context, token string) (*models.Account, error) {
		claims, err := tokens.Parse(token)
		if err != nil {
			return nil, err
		}
		account, err := accounts.GetByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: session account no longer exists", apperrors.ErrUnauthenticated)
			}
			return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
		}
		return account, nil
	}
}
