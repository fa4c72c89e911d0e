package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jlebervet/mail-manager/internal/models"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetBySubjectID(ctx context.Context, subjectID string) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	CountExternal(ctx context.Context) (int64, error)
	List(ctx context.Context) ([]models.Account, error)
	UpdateRole(ctx context.Context, id string, role models.AccountRole) error
	Delete(ctx context.Context, id string) error
}

// accountRepository implements AccountRepository using GORM
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts a new account
func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	result := r.db.WithContext(ctx).Create(account)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create account: %w", result.Error)
	}
	return nil
}

// GetByID retrieves an account by its id
func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by id: %w", result.Error)
	}
	return &account, nil
}

// GetByEmail retrieves an account by email
func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by email: %w", result.Error)
	}
	return &account, nil
}

// GetBySubjectID retrieves an account by its identity-provider subject id
func (r *accountRepository) GetBySubjectID(ctx context.Context, subjectID string) (*models.Account, error) {
	var account models.Account
	result := r.db.WithContext(ctx).Where("subject_id = ?", subjectID).First(&account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account by subject id: %w", result.Error)
	}
	return &account, nil
}

// Save persists all fields of an existing account
func (r *accountRepository) Save(ctx context.Context, account *models.Account) error {
	result := r.db.WithContext(ctx).Save(account)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to save account: %w", result.Error)
	}
	return nil
}

// TouchLogin stamps the last-login timestamp
func (r *accountRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).
		Update("last_login_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to update last login: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountExternal counts accounts carrying an identity-provider subject id.
// The admin bootstrap rule hinges on this count being zero.
func (r *accountRepository) CountExternal(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("subject_id IS NOT NULL AND subject_id <> ''").Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count external accounts: %w", result.Error)
	}
	return count, nil
}

// List retrieves all accounts ordered by creation time
func (r *accountRepository) List(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	result := r.db.WithContext(ctx).Order("created_at ASC").Find(&accounts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", result.Error)
	}
	return accounts, nil
}

// UpdateRole changes an account's role
func (r *accountRepository) UpdateRole(ctx context.Context, id string, role models.AccountRole) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("failed to update role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an account by id
func (r *accountRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Account{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete account: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
