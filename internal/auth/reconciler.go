package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jlebervet/mail-manager/internal/errors"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
)

// Reconciler resolves principals against the local account store.
//
// Resolution is idempotent: repeated resolution of the same principal never
// creates duplicate accounts and never regresses role or creation timestamp.
type Reconciler struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconciler creates a Reconciler over the account store
func NewReconciler(accounts repository.AccountRepository, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		accounts: accounts,
		logger:   logger,
		now:      time.Now,
	}
}

// ResolveAssertion resolves an external identity-provider assertion.
//
// Lookup order: subject id first (refresh), then email (link the provider
// subject onto the legacy account, keeping its id, role and history), then
// create. The very first account ever created with a subject id gets the
// admin role; the bootstrap is never re-evaluated afterwards.
func (r *Reconciler) ResolveAssertion(ctx context.Context, assertion ExternalAssertion) (*models.Account, error) {
	if assertion.Email == "" {
		return nil, apperrors.ErrMissingIdentityAttribute
	}
	name := assertion.Name
	if name == "" {
		name = assertion.Email
	}

	if assertion.SubjectID != "" {
		account, err := r.accounts.GetBySubjectID(ctx, assertion.SubjectID)
		switch {
		case err == nil:
			return r.refresh(ctx, account, assertion.Email, name)
		case !errors.Is(err, repository.ErrNotFound):
			return nil, storeErr(err)
		}
	}

	account, err := r.accounts.GetByEmail(ctx, assertion.Email)
	switch {
	case err == nil:
		return r.link(ctx, account, assertion.SubjectID, name)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeErr(err)
	}

	return r.create(ctx, assertion, name)
}

// refresh updates login metadata on an already-linked account
func (r *Reconciler) refresh(ctx context.Context, account *models.Account, email, name string) (*models.Account, error) {
	now := r.now()
	account.Email = email
	account.Name = name
	account.LastLoginAt = &now
	if err := r.accounts.Save(ctx, account); err != nil {
		return nil, storeErr(err)
	}
	return account, nil
}

// link attaches a provider subject to an existing legacy account.
// An account already carrying a different subject id is an unresolvable
// merge and must be rejected, never silently overwritten.
func (r *Reconciler) link(ctx context.Context, account *models.Account, subjectID, name string) (*models.Account, error) {
	if account.IsExternal() && subjectID != "" && *account.SubjectID != subjectID {
		return nil, fmt.Errorf("%w: account %s already linked to another identity", apperrors.ErrConflict, account.ID)
	}

	now := r.now()
	if subjectID != "" {
		account.SubjectID = &subjectID
	}
	account.Name = name
	account.LastLoginAt = &now
	if err := r.accounts.Save(ctx, account); err != nil {
		return nil, storeErr(err)
	}

	if r.logger != nil && subjectID != "" {
		r.logger.Info("linked provider identity to existing account",
			slog.String("account_id", account.ID),
			slog.String("email", account.Email))
	}
	return account, nil
}

// create provisions a brand-new account from the assertion
func (r *Reconciler) create(ctx context.Context, assertion ExternalAssertion, name string) (*models.Account, error) {
	externalCount, err := r.accounts.CountExternal(ctx)
	if err != nil {
		return nil, storeErr(err)
	}

	// Only a subject-bearing account counts as external, so only one may
	// claim the bootstrap grant.
	role := models.RoleUser
	if assertion.SubjectID != "" && externalCount == 0 {
		role = models.RoleAdmin
	}

	now := r.now()
	account := &models.Account{
		ID:          uuid.NewString(),
		Email:       assertion.Email,
		Name:        name,
		Role:        role,
		CreatedAt:   now,
		LastLoginAt: &now,
	}
	if assertion.SubjectID != "" {
		subjectID := assertion.SubjectID
		account.SubjectID = &subjectID
	}

	if err := r.accounts.Create(ctx, account); err != nil {
		// Concurrent resolution of the same principal: the unique index
		// caught the duplicate, the winner's account is authoritative.
		if errors.Is(err, repository.ErrDuplicateEntry) && assertion.SubjectID != "" {
			if existing, lookupErr := r.accounts.GetBySubjectID(ctx, assertion.SubjectID); lookupErr == nil {
				return existing, nil
			}
		}
		return nil, storeErr(err)
	}

	if r.logger != nil {
		r.logger.Info("provisioned account from provider assertion",
			slog.String("account_id", account.ID),
			slog.String("email", account.Email),
			slog.String("role", string(account.Role)))
		if role == models.RoleAdmin {
			r.logger.Warn("bootstrap admin granted to first external account",
				slog.String("email", account.Email))
		}
	}
	return account, nil
}

// ResolveCredentials resolves a legacy email/secret pair.
// The stored secret is a bcrypt hash; accounts issued by the provider carry
// no hash and can never authenticate through this path.
func (r *Reconciler) ResolveCredentials(ctx context.Context, creds Credentials) (*models.Account, error) {
	account, err := r.accounts.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthenticated)
		}
		return nil, storeErr(err)
	}

	if account.PasswordHash == nil || !CompareSecret(*account.PasswordHash, creds.Secret) {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthenticated)
	}

	if err := r.accounts.TouchLogin(ctx, account.ID, r.now()); err != nil {
		return nil, storeErr(err)
	}
	return account, nil
}

// storeErr classifies a repository failure for the caller
func storeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrDuplicateEntry) {
		return err
	}
	return fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
}
