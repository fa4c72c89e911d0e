package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/jlebervet/mail-manager/internal/errors"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
)

// ArchivalService retires services and their correspondence. Archival
// cascades: every non-archived mail routed to the service is moved to the
// archived status in one bulk statement, without workflow entries. Restore is
// deliberately asymmetric and touches only the service record; the cascaded
// mails keep their archived status.
type ArchivalService interface {
	// Archive marks the service archived and cascades to its mail items.
	// Returns the number of mail items archived.
	Archive(ctx context.Context, serviceID string, actor *models.Account) (int64, error)

	// Restore clears the archival stamps on the service only
	Restore(ctx context.Context, serviceID string) error
}

type archivalService struct {
	services repository.ServiceRepository
	mails    repository.MailRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewArchivalService creates an ArchivalService
func NewArchivalService(services repository.ServiceRepository, mails repository.MailRepository, logger *slog.Logger) ArchivalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &archivalService{
		services: services,
		mails:    mails,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *archivalService) Archive(ctx context.Context, serviceID string, actor *models.Account) (int64, error) {
	service, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, fmt.Errorf("%w: service %s", apperrors.ErrNotFound, serviceID)
		}
		return 0, fmt.Errorf("failed to get service: %w", err)
	}
	if service.Archived {
		return 0, fmt.Errorf("%w: service %s is already archived", apperrors.ErrConflict, serviceID)
	}

	if err := s.services.MarkArchived(ctx, serviceID, actor.ID, s.now()); err != nil {
		return 0, fmt.Errorf("failed to archive service: %w", err)
	}

	archived, err := s.mails.ArchiveByService(ctx, serviceID)
	if err != nil {
		return 0, fmt.Errorf("failed to archive service mails: %w", err)
	}

	s.logger.Info("service archived",
		"service_id", serviceID,
		"archived_by", actor.ID,
		"mails_archived", archived)
	return archived, nil
}

func (s *archivalService) Restore(ctx context.Context, serviceID string) error {
	service, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: service %s", apperrors.ErrNotFound, serviceID)
		}
		return fmt.Errorf("failed to get service: %w", err)
	}
	if !service.Archived {
		return fmt.Errorf("%w: service %s is not archived", apperrors.ErrConflict, serviceID)
	}

	if err := s.services.ClearArchived(ctx, serviceID); err != nil {
		return fmt.Errorf("failed to restore service: %w", err)
	}

	s.logger.Info("service restored", "service_id", serviceID)
	return nil
}
