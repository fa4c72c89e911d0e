package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jlebervet/mail-manager/internal/errors"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
)

// EventPublisher receives mail lifecycle notifications. The websocket hub
// implements it; a nil publisher disables broadcasting.
type EventPublisher interface {
	MailCreated(mail *models.Mail)
	MailStatusChanged(mail *models.Mail)
}

// CreateMailInput carries the caller-supplied fields for a new mail item.
// Names for the correspondent and service are resolved server-side.
type CreateMailInput struct {
	Direction       models.MailDirection
	Subject         string
	Body            string
	CorrespondentID string
	ServiceID       string
	SubServiceID    *string
	Status          models.MailStatus
	ParentID        *string
	Channel         models.MailChannel
	Registered      bool
	TrackingNumber  *string
	Comment         *string
}

// UpdateMailInput carries a partial update. Nil fields are left untouched;
// an empty AssigneeID clears the assignment.
type UpdateMailInput struct {
	Subject      *string
	Body         *string
	Status       *models.MailStatus
	Comment      *string
	AssigneeID   *string
	ServiceID    *string
	SubServiceID *string
}

// MailDetail is a mail item together with its reply thread, resolved at read
// time: the parent summary first (when the item is itself a reply), then the
// direct replies in creation order.
type MailDetail struct {
	Mail    *models.Mail         `json:"mail"`
	Related []models.MailSummary `json:"related"`
}

// MailService manages the correspondence register
type MailService interface {
	// Create registers a new mail item, allocates its reference and writes
	// the opening workflow entry.
	Create(ctx context.Context, input CreateMailInput, actor *models.Account) (*models.Mail, error)

	// Get loads a mail item with its reply thread. The first authenticated
	// read stamps the item as opened by the actor and assigns it to them.
	Get(ctx context.Context, id string, actor *models.Account) (*MailDetail, error)

	// List returns mail items newest first, optionally filtered
	List(ctx context.Context, filter repository.MailFilter) ([]models.Mail, error)

	// Update applies a partial update. A status change appends a workflow
	// entry carrying the actor and the optional comment.
	Update(ctx context.Context, id string, input UpdateMailInput, actor *models.Account) (*models.Mail, error)

	// AddAttachment embeds a document into the mail item
	AddAttachment(ctx context.Context, id string, attachment models.Attachment) (*models.Mail, error)

	// Delete removes a mail item permanently
	Delete(ctx context.Context, id string) error
}

type mailService struct {
	mails          repository.MailRepository
	correspondents repository.CorrespondentRepository
	services       repository.ServiceRepository
	accounts       repository.AccountRepository
	refs           ReferenceGenerator
	events         EventPublisher
	logger         *slog.Logger
	now            func() time.Time
}

// NewMailService creates a MailService
func NewMailService(
	mails repository.MailRepository,
	correspondents repository.CorrespondentRepository,
	services repository.ServiceRepository,
	accounts repository.AccountRepository,
	refs ReferenceGenerator,
	events EventPublisher,
	logger *slog.Logger,
) MailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &mailService{
		mails:          mails,
		correspondents: correspondents,
		services:       services,
		accounts:       accounts,
		refs:           refs,
		events:         events,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *mailService) Create(ctx context.Context, input CreateMailInput, actor *models.Account) (*models.Mail, error) {
	if err := s.validateCreate(&input); err != nil {
		return nil, err
	}

	correspondent, err := s.correspondents.GetByID(ctx, input.CorrespondentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: correspondent %s not found", apperrors.ErrValidation, input.CorrespondentID)
		}
		return nil, fmt.Errorf("failed to resolve correspondent: %w", err)
	}

	service, err := s.services.GetByID(ctx, input.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: service %s not found", apperrors.ErrValidation, input.ServiceID)
		}
		return nil, fmt.Errorf("failed to resolve service: %w", err)
	}

	var subServiceName *string
	if input.SubServiceID != nil && *input.SubServiceID != "" {
		sub, ok := service.SubService(*input.SubServiceID)
		if !ok {
			return nil, fmt.Errorf("%w: sub-service %s not found in service %s", apperrors.ErrValidation, *input.SubServiceID, service.ID)
		}
		subServiceName = &sub.Name
	}

	var parent *models.Mail
	if input.ParentID != nil && *input.ParentID != "" {
		parent, err = s.mails.GetByID(ctx, *input.ParentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: parent mail %s not found", apperrors.ErrValidation, *input.ParentID)
			}
			return nil, fmt.Errorf("failed to resolve parent mail: %w", err)
		}
	}

	createdAt := s.now()
	mail := &models.Mail{
		ID:                uuid.New().String(),
		Direction:         input.Direction,
		Subject:           strings.TrimSpace(input.Subject),
		Body:              input.Body,
		CorrespondentID:   correspondent.ID,
		CorrespondentName: correspondent.Name,
		ServiceID:         service.ID,
		ServiceName:       service.Name,
		SubServiceID:      input.SubServiceID,
		SubServiceName:    subServiceName,
		Status:            input.Status,
		Workflow: []models.WorkflowEntry{{
			Status:    input.Status,
			UserID:    actor.ID,
			UserName:  actor.Name,
			Timestamp: createdAt,
			Comment:   input.Comment,
		}},
		Attachments:    []models.Attachment{},
		CreatedAt:      createdAt,
		Children:       []models.MailSummary{},
		Channel:        input.Channel,
		Registered:     input.Registered,
		TrackingNumber: input.TrackingNumber,
	}
	if parent != nil {
		mail.ParentID = &parent.ID
		ref := parent.Reference
		mail.ParentReference = &ref
	}

	if err := s.createWithReference(ctx, mail); err != nil {
		return nil, err
	}

	if parent != nil {
		if err := s.mails.AppendChildSummary(ctx, parent.ID, mail.Summary()); err != nil {
			// The reply itself is committed; thread resolution at read time
			// does not depend on the parent's denormalized list.
			s.logger.Warn("failed to record reply on parent mail",
				"parent_id", parent.ID, "mail_id", mail.ID, "error", err)
		}
	}

	s.logger.Info("mail created",
		"mail_id", mail.ID,
		"reference", mail.Reference,
		"direction", mail.Direction,
		"service_id", mail.ServiceID)

	if s.events != nil {
		s.events.MailCreated(mail)
	}
	return mail, nil
}

// createWithReference inserts the mail, re-deriving the reference when a
// concurrent writer wins the same sequence number.
func (s *mailService) createWithReference(ctx context.Context, mail *models.Mail) error {
	for attempt := 0; attempt < referenceCreateAttempts; attempt++ {
		reference, err := s.refs.Next(ctx)
		if err != nil {
			return err
		}
		mail.Reference = reference

		err = s.mails.Create(ctx, mail)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateEntry) {
			return fmt.Errorf("failed to create mail: %w", err)
		}
		s.logger.Debug("reference already taken, retrying", "reference", reference)
	}
	return fmt.Errorf("%w: could not allocate a unique mail reference", apperrors.ErrConflict)
}

func (s *mailService) Get(ctx context.Context, id string, actor *models.Account) (*MailDetail, error) {
	mail, err := s.mails.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: mail %s", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get mail: %w", err)
	}

	// First authenticated read claims the item. The stamp is persisted
	// before the item is returned so a crash cannot yield an unstamped read.
	if actor != nil && !mail.Opened() {
		openedAt := s.now()
		if err := s.mails.SetFirstOpened(ctx, mail.ID, actor.ID, actor.Name, openedAt); err != nil {
			return nil, fmt.Errorf("failed to record first open: %w", err)
		}
		mail.FirstOpenedByID = &actor.ID
		mail.FirstOpenedByName = &actor.Name
		mail.FirstOpenedAt = &openedAt
		mail.AssigneeID = &actor.ID
		mail.AssigneeName = &actor.Name
		s.logger.Info("mail first opened", "mail_id", mail.ID, "user_id", actor.ID)
	}

	related, err := s.resolveRelated(ctx, mail)
	if err != nil {
		return nil, err
	}
	return &MailDetail{Mail: mail, Related: related}, nil
}

// resolveRelated recomputes the reply thread from live rows so that stale
// denormalized summaries never surface: the parent first, then the direct
// replies in creation order.
func (s *mailService) resolveRelated(ctx context.Context, mail *models.Mail) ([]models.MailSummary, error) {
	related := []models.MailSummary{}

	if mail.ParentID != nil && *mail.ParentID != "" {
		parent, err := s.mails.GetByID(ctx, *mail.ParentID)
		if err == nil {
			related = append(related, parent.Summary())
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to resolve parent mail: %w", err)
		}
	}

	children, err := s.mails.ListByParent(ctx, mail.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}
	for i := range children {
		related = append(related, children[i].Summary())
	}
	return related, nil
}

func (s *mailService) List(ctx context.Context, filter repository.MailFilter) ([]models.Mail, error) {
	mails, err := s.mails.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list mails: %w", err)
	}
	return mails, nil
}

func (s *mailService) Update(ctx context.Context, id string, input UpdateMailInput, actor *models.Account) (*models.Mail, error) {
	mail, err := s.mails.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: mail %s", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get mail: %w", err)
	}

	if input.Subject != nil {
		subject := strings.TrimSpace(*input.Subject)
		if subject == "" {
			return nil, fmt.Errorf("%w: subject cannot be empty", apperrors.ErrValidation)
		}
		mail.Subject = subject
	}
	if input.Body != nil {
		mail.Body = *input.Body
	}
	if input.AssigneeID != nil {
		if *input.AssigneeID == "" {
			mail.AssigneeID = nil
			mail.AssigneeName = nil
		} else {
			assignee, err := s.accounts.GetByID(ctx, *input.AssigneeID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, fmt.Errorf("%w: assignee %s not found", apperrors.ErrValidation, *input.AssigneeID)
				}
				return nil, fmt.Errorf("failed to resolve assignee: %w", err)
			}
			mail.AssigneeID = &assignee.ID
			mail.AssigneeName = &assignee.Name
		}
	}
	if input.ServiceID != nil && *input.ServiceID != mail.ServiceID {
		service, err := s.services.GetByID(ctx, *input.ServiceID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: service %s not found", apperrors.ErrValidation, *input.ServiceID)
			}
			return nil, fmt.Errorf("failed to resolve service: %w", err)
		}
		mail.ServiceID = service.ID
		mail.ServiceName = service.Name
		mail.SubServiceID = nil
		mail.SubServiceName = nil
	}
	if input.SubServiceID != nil {
		service, err := s.services.GetByID(ctx, mail.ServiceID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve service: %w", err)
		}
		sub, ok := service.SubService(*input.SubServiceID)
		if !ok {
			return nil, fmt.Errorf("%w: sub-service %s not found in service %s", apperrors.ErrValidation, *input.SubServiceID, service.ID)
		}
		mail.SubServiceID = input.SubServiceID
		mail.SubServiceName = &sub.Name
	}

	statusChanged := false
	if input.Status != nil && *input.Status != mail.Status {
		if !models.ValidStatus(*input.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, *input.Status)
		}
		mail.Status = *input.Status
		mail.Workflow = append(mail.Workflow, models.WorkflowEntry{
			Status:    *input.Status,
			UserID:    actor.ID,
			UserName:  actor.Name,
			Timestamp: s.now(),
			Comment:   input.Comment,
		})
		statusChanged = true
	}

	if err := s.mails.Save(ctx, mail); err != nil {
		return nil, fmt.Errorf("failed to update mail: %w", err)
	}

	if statusChanged {
		s.logger.Info("mail status changed",
			"mail_id", mail.ID, "status", mail.Status, "user_id", actor.ID)
		if s.events != nil {
			s.events.MailStatusChanged(mail)
		}
	}
	return mail, nil
}

func (s *mailService) AddAttachment(ctx context.Context, id string, attachment models.Attachment) (*models.Mail, error) {
	if attachment.Filename == "" {
		return nil, fmt.Errorf("%w: attachment filename is required", apperrors.ErrValidation)
	}
	if attachment.ID == "" {
		attachment.ID = uuid.New().String()
	}
	attachment.Size = int64(len(attachment.Data))

	if err := s.mails.AppendAttachment(ctx, id, attachment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: mail %s", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to attach document: %w", err)
	}

	mail, err := s.mails.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload mail: %w", err)
	}
	return mail, nil
}

func (s *mailService) Delete(ctx context.Context, id string) error {
	if err := s.mails.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: mail %s", apperrors.ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete mail: %w", err)
	}
	return nil
}

func (s *mailService) validateCreate(input *CreateMailInput) error {
	if input.Direction != models.DirectionIncoming && input.Direction != models.DirectionOutgoing {
		return fmt.Errorf("%w: direction must be incoming or outgoing", apperrors.ErrValidation)
	}
	if strings.TrimSpace(input.Subject) == "" {
		return fmt.Errorf("%w: subject is required", apperrors.ErrValidation)
	}
	if input.CorrespondentID == "" {
		return fmt.Errorf("%w: correspondent_id is required", apperrors.ErrValidation)
	}
	if input.ServiceID == "" {
		return fmt.Errorf("%w: service_id is required", apperrors.ErrValidation)
	}
	if input.Status == "" {
		input.Status = models.StatusReceived
	}
	if !models.ValidStatus(input.Status) {
		return fmt.Errorf("%w: unknown status %q", apperrors.ErrValidation, input.Status)
	}
	if input.Channel == "" {
		input.Channel = models.ChannelLetter
	}
	if !models.ValidChannel(input.Channel) {
		return fmt.Errorf("%w: unknown channel %q", apperrors.ErrValidation, input.Channel)
	}
	return nil
}
