package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jlebervet/mail-manager/internal/models"
	"gorm.io/gorm"
)

// ServiceRepository defines the interface for service data access
type ServiceRepository interface {
	Create(ctx context.Context, service *models.Service) error
	GetByID(ctx context.Context, id string) (*models.Service, error)
	First(ctx context.Context) (*models.Service, error)
	List(ctx context.Context, includeArchived bool) ([]models.Service, error)
	Save(ctx context.Context, service *models.Service) error
	MarkArchived(ctx context.Context, id, archivedBy string, at time.Time) error
	ClearArchived(ctx context.Context, id string) error
}

// serviceRepository implements ServiceRepository using GORM
type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a new ServiceRepository instance
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

// Create inserts a new service
func (r *serviceRepository) Create(ctx context.Context, service *models.Service) error {
	result := r.db.WithContext(ctx).Create(service)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create service: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a service by its id
func (r *serviceRepository) GetByID(ctx context.Context, id string) (*models.Service, error) {
	var service models.Service
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&service)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service by id: %w", result.Error)
	}
	return &service, nil
}

// First retrieves the oldest service, used as the default target for imports
func (r *serviceRepository) First(ctx context.Context) (*models.Service, error) {
	var service models.Service
	result := r.db.WithContext(ctx).Order("created_at ASC").First(&service)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get default service: %w", result.Error)
	}
	return &service, nil
}

// List retrieves services, excluding archived ones unless asked otherwise
func (r *serviceRepository) List(ctx context.Context, includeArchived bool) ([]models.Service, error) {
	var services []models.Service
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}
	if err := query.Find(&services).Error; err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

// Save persists all fields of an existing service
func (r *serviceRepository) Save(ctx context.Context, service *models.Service) error {
	result := r.db.WithContext(ctx).Save(service)
	if result.Error != nil {
		return fmt.Errorf("failed to save service: %w", result.Error)
	}
	return nil
}

// MarkArchived stamps a service as archived by the given actor
func (r *serviceRepository) MarkArchived(ctx context.Context, id, archivedBy string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Service{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"archived":    true,
			"archived_at": at,
			"archived_by": archivedBy,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to archive service: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearArchived removes a service's archival stamp
func (r *serviceRepository) ClearArchived(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&models.Service{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"archived":    false,
			"archived_at": nil,
			"archived_by": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to restore service: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
