package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jlebervet/mail-manager/internal/models"
	"gorm.io/gorm"
)

// MailFilter narrows mail listings
type MailFilter struct {
	Direction models.MailDirection
	Status    models.MailStatus
	ServiceID string
}

// MailRepository defines the interface for mail data access
type MailRepository interface {
	Create(ctx context.Context, mail *models.Mail) error
	GetByID(ctx context.Context, id string) (*models.Mail, error)
	List(ctx context.Context, filter MailFilter) ([]models.Mail, error)
	ListByParent(ctx context.Context, parentID string) ([]models.Mail, error)
	Save(ctx context.Context, mail *models.Mail) error
	SetFirstOpened(ctx context.Context, id, userID, userName string, at time.Time) error
	AppendChildSummary(ctx context.Context, parentID string, summary models.MailSummary) error
	AppendAttachment(ctx context.Context, id string, attachment models.Attachment) error
	ArchiveByService(ctx context.Context, serviceID string) (int64, error)
	Count(ctx context.Context) (int64, error)
	CountByDirection(ctx context.Context, direction models.MailDirection) (int64, error)
	CountByStatus(ctx context.Context, status models.MailStatus) (int64, error)
	CountByAssignee(ctx context.Context, accountID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// mailRepository implements MailRepository using GORM
type mailRepository struct {
	db *gorm.DB
}

// NewMailRepository creates a new MailRepository instance
func NewMailRepository(db *gorm.DB) MailRepository {
	return &mailRepository{db: db}
}

// Create inserts a new mail item. A reference collision surfaces as
// ErrDuplicateEntry so the caller can regenerate and retry.
func (r *mailRepository) Create(ctx context.Context, mail *models.Mail) error {
	result := r.db.WithContext(ctx).Create(mail)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create mail: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a mail item by its id
func (r *mailRepository) GetByID(ctx context.Context, id string) (*models.Mail, error) {
	var mail models.Mail
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&mail)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mail by id: %w", result.Error)
	}
	return &mail, nil
}

// List retrieves mail items matching the filter, newest first
func (r *mailRepository) List(ctx context.Context, filter MailFilter) ([]models.Mail, error) {
	var mails []models.Mail
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ServiceID != "" {
		query = query.Where("service_id = ?", filter.ServiceID)
	}
	if err := query.Find(&mails).Error; err != nil {
		return nil, fmt.Errorf("failed to list mails: %w", err)
	}
	return mails, nil
}

// ListByParent retrieves the replies to a mail item in creation order
func (r *mailRepository) ListByParent(ctx context.Context, parentID string) ([]models.Mail, error) {
	var mails []models.Mail
	result := r.db.WithContext(ctx).Where("parent_id = ?", parentID).
		Order("created_at ASC").Find(&mails)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list replies: %w", result.Error)
	}
	return mails, nil
}

// Save persists all fields of an existing mail item
func (r *mailRepository) Save(ctx context.Context, mail *models.Mail) error {
	result := r.db.WithContext(ctx).Save(mail)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to save mail: %w", result.Error)
	}
	return nil
}

// SetFirstOpened stamps the first-view fields and the initial assignee.
// The write is unconditional; concurrent first opens race last-write-wins.
func (r *mailRepository) SetFirstOpened(ctx context.Context, id, userID, userName string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Mail{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"first_opened_by_id":   userID,
			"first_opened_by_name": userName,
			"first_opened_at":      at,
			"assignee_id":          userID,
			"assignee_name":        userName,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to stamp first open: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendChildSummary pushes a reply summary onto the parent's denormalized
// child list. Read-modify-write on a single document, no transaction.
func (r *mailRepository) AppendChildSummary(ctx context.Context, parentID string, summary models.MailSummary) error {
	parent, err := r.GetByID(ctx, parentID)
	if err != nil {
		return err
	}
	parent.Children = append(parent.Children, summary)
	result := r.db.WithContext(ctx).Model(&models.Mail{}).Where("id = ?", parentID).
		Update("children", parent.Children)
	if result.Error != nil {
		return fmt.Errorf("failed to append child summary: %w", result.Error)
	}
	return nil
}

// AppendAttachment pushes an embedded attachment record onto a mail item
func (r *mailRepository) AppendAttachment(ctx context.Context, id string, attachment models.Attachment) error {
	mail, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	mail.Attachments = append(mail.Attachments, attachment)
	result := r.db.WithContext(ctx).Model(&models.Mail{}).Where("id = ?", id).
		Update("attachments", mail.Attachments)
	if result.Error != nil {
		return fmt.Errorf("failed to append attachment: %w", result.Error)
	}
	return nil
}

// ArchiveByService bulk-forces every non-archived mail of a service to
// archived and returns the affected count. No workflow entries are written:
// cascade archival is not a user action on each item.
func (r *mailRepository) ArchiveByService(ctx context.Context, serviceID string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Mail{}).
		Where("service_id = ? AND status <> ?", serviceID, models.StatusArchived).
		Update("status", models.StatusArchived)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to archive mails by service: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Count returns the total number of mail items
func (r *mailRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Mail{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count mails: %w", result.Error)
	}
	return count, nil
}

// CountByDirection counts mail items with the given direction
func (r *mailRepository) CountByDirection(ctx context.Context, direction models.MailDirection) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Mail{}).
		Where("direction = ?", direction).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count mails by direction: %w", result.Error)
	}
	return count, nil
}

// CountByStatus counts mail items with the given status
func (r *mailRepository) CountByStatus(ctx context.Context, status models.MailStatus) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Mail{}).
		Where("status = ?", status).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count mails by status: %w", result.Error)
	}
	return count, nil
}

// CountByAssignee counts mail items currently assigned to an account
func (r *mailRepository) CountByAssignee(ctx context.Context, accountID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Mail{}).
		Where("assignee_id = ?", accountID).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count assigned mails: %w", result.Error)
	}
	return count, nil
}

// Delete removes a mail item by id
func (r *mailRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Mail{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete mail: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
