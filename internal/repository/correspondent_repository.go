package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jlebervet/mail-manager/internal/models"
	"gorm.io/gorm"
)

// CorrespondentRepository defines the interface for correspondent data access
type CorrespondentRepository interface {
	Create(ctx context.Context, correspondent *models.Correspondent) error
	GetByID(ctx context.Context, id string) (*models.Correspondent, error)
	GetByName(ctx context.Context, name string) (*models.Correspondent, error)
	GetByEmail(ctx context.Context, email string) (*models.Correspondent, error)
	List(ctx context.Context, search string) ([]models.Correspondent, error)
	Save(ctx context.Context, correspondent *models.Correspondent) error
	Delete(ctx context.Context, id string) error
}

// correspondentRepository implements CorrespondentRepository using GORM
type correspondentRepository struct {
	db *gorm.DB
}

// NewCorrespondentRepository creates a new CorrespondentRepository instance
func NewCorrespondentRepository(db *gorm.DB) CorrespondentRepository {
	return &correspondentRepository{db: db}
}

// Create inserts a new correspondent
func (r *correspondentRepository) Create(ctx context.Context, correspondent *models.Correspondent) error {
	result := r.db.WithContext(ctx).Create(correspondent)
	if result.Error != nil {
		return fmt.Errorf("failed to create correspondent: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a correspondent by its id
func (r *correspondentRepository) GetByID(ctx context.Context, id string) (*models.Correspondent, error) {
	var correspondent models.Correspondent
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&correspondent)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get correspondent by id: %w", result.Error)
	}
	return &correspondent, nil
}

// GetByName retrieves a correspondent by exact display name.
// The CSV importer reuses correspondents through this lookup.
func (r *correspondentRepository) GetByName(ctx context.Context, name string) (*models.Correspondent, error) {
	var correspondent models.Correspondent
	result := r.db.WithContext(ctx).Where("name = ?", name).First(&correspondent)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get correspondent by name: %w", result.Error)
	}
	return &correspondent, nil
}

// GetByEmail retrieves a correspondent by email address, case-insensitive.
// Email intake reuses correspondents through this lookup.
func (r *correspondentRepository) GetByEmail(ctx context.Context, email string) (*models.Correspondent, error) {
	var correspondent models.Correspondent
	result := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&correspondent)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get correspondent by email: %w", result.Error)
	}
	return &correspondent, nil
}

// List retrieves correspondents, optionally filtered by a case-insensitive
// search over name, email and organization
func (r *correspondentRepository) List(ctx context.Context, search string) ([]models.Correspondent, error) {
	var correspondents []models.Correspondent
	query := r.db.WithContext(ctx).Order("name ASC")
	if search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?) OR LOWER(organization) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}
	if err := query.Find(&correspondents).Error; err != nil {
		return nil, fmt.Errorf("failed to list correspondents: %w", err)
	}
	return correspondents, nil
}

// Save persists all fields of an existing correspondent
func (r *correspondentRepository) Save(ctx context.Context, correspondent *models.Correspondent) error {
	result := r.db.WithContext(ctx).Save(correspondent)
	if result.Error != nil {
		return fmt.Errorf("failed to save correspondent: %w", result.Error)
	}
	return nil
}

// Delete removes a correspondent by id
func (r *correspondentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Correspondent{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete correspondent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
