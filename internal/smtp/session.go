package smtp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
	"github.com/jlebervet/mail-manager/internal/services"
)

// Session implements the go-smtp Session interface
type Session struct {
	backend    *Backend
	from       string
	recipients []string
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend) *Session {
	return &Session{
		backend:    backend,
		recipients: make([]string, 0),
	}
}

// AuthPlain handles PLAIN authentication (not required for receiving)
func (s *Session) AuthPlain(username, password string) error {
	return nil
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	if s.backend.logger != nil {
		s.backend.logger.Debug("MAIL FROM", slog.String("from", from))
	}
	return nil
}

// Rcpt handles the RCPT TO command. Only addresses at the configured intake
// domain are accepted.
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	_, domainName, err := parseEmailAddress(to)
	if err != nil {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Invalid recipient address",
		}
	}

	if s.backend.domain != "" && domainName != strings.ToLower(s.backend.domain) {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Relay not permitted",
		}
	}

	s.recipients = append(s.recipients, to)
	if s.backend.logger != nil {
		s.backend.logger.Debug("RCPT TO", slog.String("to", to))
	}
	return nil
}

// Data handles the DATA command and registers the message as incoming mail
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	parsed, err := ParseMessage(r)
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		}
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Failed to parse email",
		}
	}

	// Envelope sender wins when the header had none
	if parsed.SenderEmail == "" {
		_, _, err := parseEmailAddress(s.from)
		if err == nil {
			parsed.SenderEmail = strings.Trim(strings.TrimSpace(s.from), "<>")
		}
	}

	ctx := context.Background()
	if err := s.register(ctx, parsed); err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to register inbound email", slog.Any("error", err))
		}
		return &smtp.SMTPError{
			Code:         451,
			EnhancedCode: smtp.EnhancedCode{4, 3, 0},
			Message:      "Temporary error",
		}
	}

	if s.backend.logger != nil {
		s.backend.logger.Info("email received",
			slog.String("from", s.from),
			slog.Int("recipients", len(s.recipients)),
			slog.String("subject", parsed.Subject))
	}
	return nil
}

// register creates the incoming mail item with embedded attachments
func (s *Session) register(ctx context.Context, parsed *ParsedMessage) error {
	correspondent, err := s.resolveCorrespondent(ctx, parsed)
	if err != nil {
		return err
	}

	service, err := s.backend.services.First(ctx)
	if err != nil {
		return fmt.Errorf("no service available for intake: %w", err)
	}

	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		subject = "(no subject)"
	}

	mail, err := s.backend.mailService.Create(ctx, services.CreateMailInput{
		Direction:       models.DirectionIncoming,
		Subject:         subject,
		Body:            parsed.Body,
		CorrespondentID: correspondent.ID,
		ServiceID:       service.ID,
		Status:          models.StatusReceived,
		Channel:         models.ChannelEmail,
	}, s.backend.intakeAccount)
	if err != nil {
		return fmt.Errorf("failed to create mail: %w", err)
	}

	for _, att := range parsed.Attachments {
		if att.Filename == "" {
			continue
		}
		_, err := s.backend.mailService.AddAttachment(ctx, mail.ID, models.Attachment{
			ID:          uuid.New().String(),
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        int64(len(att.Data)),
			Data:        att.Data,
		})
		if err != nil && s.backend.logger != nil {
			s.backend.logger.Error("failed to attach document",
				slog.String("filename", att.Filename),
				slog.Any("error", err))
		}
	}
	return nil
}

// resolveCorrespondent reuses a correspondent matched by sender email or
// creates a new one from the message headers
func (s *Session) resolveCorrespondent(ctx context.Context, parsed *ParsedMessage) (*models.Correspondent, error) {
	name := strings.TrimSpace(parsed.SenderName)
	email := strings.TrimSpace(parsed.SenderEmail)
	if email == "" {
		return nil, fmt.Errorf("message carries no sender address")
	}
	if name == "" {
		name = email
	}

	correspondent, err := s.backend.correspondents.GetByEmail(ctx, email)
	if err == nil {
		return correspondent, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up correspondent: %w", err)
	}

	correspondent = &models.Correspondent{
		ID:    uuid.New().String(),
		Name:  name,
		Email: &email,
	}
	if err := s.backend.correspondents.Create(ctx, correspondent); err != nil {
		return nil, fmt.Errorf("failed to create correspondent: %w", err)
	}
	if s.backend.logger != nil {
		s.backend.logger.Info("correspondent created from email intake", slog.String("email", email))
	}
	return correspondent, nil
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.recipients = make([]string, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

// parseEmailAddress parses an email address into local part and domain
func parseEmailAddress(address string) (localPart, domain string, err error) {
	address = strings.TrimPrefix(address, "<")
	address = strings.TrimSuffix(address, ">")
	address = strings.TrimSpace(address)

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	localPart = strings.ToLower(parts[0])
	domain = strings.ToLower(parts[1])

	if localPart == "" || domain == "" {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	return localPart, domain, nil
}
