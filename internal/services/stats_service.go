package services

import (
	"context"
	"fmt"

	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
)

// MailStats is the dashboard aggregate over the register
type MailStats struct {
	Total        int64            `json:"total"`
	Incoming     int64            `json:"incoming"`
	Outgoing     int64            `json:"outgoing"`
	ByStatus     map[string]int64 `json:"by_status"`
	AssignedToMe int64            `json:"assigned_to_me"`
}

// StatsService computes register counters
type StatsService interface {
	// Stats returns the dashboard counters. ByStatus always carries an
	// entry for every canonical status, zero included.
	Stats(ctx context.Context, actor *models.Account) (*MailStats, error)
}

type statsService struct {
	mails repository.MailRepository
}

// NewStatsService creates a StatsService
func NewStatsService(mails repository.MailRepository) StatsService {
	return &statsService{mails: mails}
}

func (s *statsService) Stats(ctx context.Context, actor *models.Account) (*MailStats, error) {
	total, err := s.mails.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count mails: %w", err)
	}
	incoming, err := s.mails.CountByDirection(ctx, models.DirectionIncoming)
	if err != nil {
		return nil, fmt.Errorf("failed to count incoming mails: %w", err)
	}
	outgoing, err := s.mails.CountByDirection(ctx, models.DirectionOutgoing)
	if err != nil {
		return nil, fmt.Errorf("failed to count outgoing mails: %w", err)
	}

	byStatus := make(map[string]int64, len(models.CanonicalStatuses))
	for _, status := range models.CanonicalStatuses {
		count, err := s.mails.CountByStatus(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("failed to count mails with status %s: %w", status, err)
		}
		byStatus[string(status)] = count
	}

	stats := &MailStats{
		Total:    total,
		Incoming: incoming,
		Outgoing: outgoing,
		ByStatus: byStatus,
	}
	if actor != nil {
		assigned, err := s.mails.CountByAssignee(ctx, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count assigned mails: %w", err)
		}
		stats.AssignedToMe = assigned
	}
	return stats, nil
}
