package services

import (
	"context"
	"fmt"
	"time"

	"github.com/jlebervet/mail-manager/internal/repository"
)

// referenceCreateAttempts bounds the retry loop when a concurrent creation
// claims the same reference. The unique index on mails.reference is the
// backstop that makes the retry safe.
const referenceCreateAttempts = 3

// ReferenceGenerator allocates human-readable mail references of the form
// MAIL-<year>-<sequence>, where the sequence is the current mail count plus
// one, zero-padded to five digits.
type ReferenceGenerator interface {
	// Next computes the next reference candidate. Callers must be prepared
	// for a duplicate-key failure on insert and ask again.
	Next(ctx context.Context) (string, error)
}

type referenceGenerator struct {
	mails repository.MailRepository
	now   func() time.Time
}

// NewReferenceGenerator creates a ReferenceGenerator backed by the mail store.
func NewReferenceGenerator(mails repository.MailRepository) ReferenceGenerator {
	return &referenceGenerator{mails: mails, now: time.Now}
}

func (g *referenceGenerator) Next(ctx context.Context) (string, error) {
	count, err := g.mails.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count mails for reference: %w", err)
	}
	return fmt.Sprintf("MAIL-%d-%05d", g.now().Year(), count+1), nil
}
