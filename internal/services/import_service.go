package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jlebervet/mail-manager/internal/errors"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
)

// ImportStats summarizes one CSV import run. Errors carries one message per
// rejected row; rejected rows never abort the run.
type ImportStats struct {
	CorrespondentsCreated int      `json:"correspondents_created"`
	CorrespondentsUpdated int      `json:"correspondents_updated"`
	MailsCreated          int      `json:"mails_created"`
	Errors                []string `json:"errors"`
}

// ImportService loads legacy register exports. The CSV format is the one the
// municipality's previous tool produced, with French column headers:
// nom, prenom, telephone_fixe, telephone_mobile, adresse_mail,
// adresse_postale, titre_message, type, statut.
type ImportService interface {
	// ImportCSV reads the export row by row, reusing or creating
	// correspondents by exact full name and registering one mail per row.
	ImportCSV(ctx context.Context, r io.Reader, actor *models.Account) (*ImportStats, error)
}

type importService struct {
	mails          repository.MailRepository
	correspondents repository.CorrespondentRepository
	services       repository.ServiceRepository
	refs           ReferenceGenerator
	logger         *slog.Logger
	now            func() time.Time
}

// NewImportService creates an ImportService
func NewImportService(
	mails repository.MailRepository,
	correspondents repository.CorrespondentRepository,
	services repository.ServiceRepository,
	refs ReferenceGenerator,
	logger *slog.Logger,
) ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &importService{
		mails:          mails,
		correspondents: correspondents,
		services:       services,
		refs:           refs,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *importService) ImportCSV(ctx context.Context, r io.Reader, actor *models.Account) (*ImportStats, error) {
	// Imported rows land on the oldest service; an empty service table
	// means nothing can be routed, so the whole run is refused up front.
	defaultService, err := s.services.First(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no service available, create one before importing", apperrors.ErrValidation)
		}
		return nil, fmt.Errorf("failed to load default service: %w", err)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: could not read CSV header: %v", apperrors.ErrValidation, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}

	stats := &ImportStats{Errors: []string{}}
	rowNumber := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNumber++
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("row %d: %v", rowNumber, err))
			continue
		}
		if err := s.importRow(ctx, columns, record, defaultService, actor, stats); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("row %d: %v", rowNumber, err))
		}
	}

	s.logger.Info("csv import finished",
		"rows", rowNumber,
		"mails_created", stats.MailsCreated,
		"correspondents_created", stats.CorrespondentsCreated,
		"correspondents_updated", stats.CorrespondentsUpdated,
		"errors", len(stats.Errors))
	return stats, nil
}

func (s *importService) importRow(
	ctx context.Context,
	columns map[string]int,
	record []string,
	defaultService *models.Service,
	actor *models.Account,
	stats *ImportStats,
) error {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	nom := field("nom")
	prenom := field("prenom")
	telFixe := field("telephone_fixe")
	telMobile := field("telephone_mobile")
	email := field("adresse_mail")
	adresse := field("adresse_postale")
	titre := field("titre_message")
	typeMsg := strings.ToLower(field("type"))
	statut := strings.ToLower(field("statut"))

	if nom == "" || titre == "" {
		return fmt.Errorf("nom and titre_message are required")
	}

	fullName := nom
	if prenom != "" {
		fullName = prenom + " " + nom
	}
	phone := telMobile
	if phone == "" {
		phone = telFixe
	}

	correspondent, err := s.resolveCorrespondent(ctx, fullName, email, phone, adresse, stats)
	if err != nil {
		return err
	}

	createdAt := s.now()
	mail := &models.Mail{
		ID:                uuid.New().String(),
		Direction:         classifyDirection(typeMsg),
		Subject:           titre,
		Body:              fmt.Sprintf("Imported from CSV\n\nTitle: %s", titre),
		CorrespondentID:   correspondent.ID,
		CorrespondentName: correspondent.Name,
		ServiceID:         defaultService.ID,
		ServiceName:       defaultService.Name,
		Status:            classifyStatus(statut),
		Attachments:       []models.Attachment{},
		CreatedAt:         createdAt,
		Children:          []models.MailSummary{},
		Channel:           models.ChannelLetter,
	}
	comment := "CSV import"
	mail.Workflow = []models.WorkflowEntry{{
		Status:    mail.Status,
		UserID:    actor.ID,
		UserName:  actor.Name,
		Timestamp: createdAt,
		Comment:   &comment,
	}}

	if err := s.createImported(ctx, mail); err != nil {
		return err
	}
	stats.MailsCreated++
	return nil
}

// resolveCorrespondent reuses an existing correspondent matched by exact full
// name, filling only fields that are still empty, or creates a new one.
func (s *importService) resolveCorrespondent(ctx context.Context, fullName, email, phone, address string, stats *ImportStats) (*models.Correspondent, error) {
	correspondent, err := s.correspondents.GetByName(ctx, fullName)
	if err == nil {
		updated := false
		if email != "" && (correspondent.Email == nil || *correspondent.Email == "") {
			correspondent.Email = &email
			updated = true
		}
		if phone != "" && (correspondent.Phone == nil || *correspondent.Phone == "") {
			correspondent.Phone = &phone
			updated = true
		}
		if address != "" && (correspondent.Address == nil || *correspondent.Address == "") {
			correspondent.Address = &address
			updated = true
		}
		if updated {
			if err := s.correspondents.Save(ctx, correspondent); err != nil {
				return nil, fmt.Errorf("failed to update correspondent: %w", err)
			}
			stats.CorrespondentsUpdated++
		}
		return correspondent, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up correspondent: %w", err)
	}

	correspondent = &models.Correspondent{
		ID:        uuid.New().String(),
		Name:      fullName,
		CreatedAt: s.now(),
	}
	if email != "" {
		correspondent.Email = &email
	}
	if phone != "" {
		correspondent.Phone = &phone
	}
	if address != "" {
		correspondent.Address = &address
	}
	if err := s.correspondents.Create(ctx, correspondent); err != nil {
		return nil, fmt.Errorf("failed to create correspondent: %w", err)
	}
	stats.CorrespondentsCreated++
	return correspondent, nil
}

func (s *importService) createImported(ctx context.Context, mail *models.Mail) error {
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
	}
	return fmt.Errorf("could not allocate a unique mail reference")
}

// classifyStatus maps the legacy export's free-form statuses. Only the archive
// spellings are distinguished; everything else enters as received.
func classifyStatus(statut string) models.MailStatus {
	switch statut {
	case "archivé", "archive", "archivés":
		return models.StatusArchived
	default:
		return models.StatusReceived
	}
}

func classifyDirection(typeMsg string) models.MailDirection {
	switch typeMsg {
	case "sortant", "envoyé", "envoye", "out":
		return models.DirectionOutgoing
	default:
		return models.DirectionIncoming
	}
}
