package service

import (
	"context"
	"time"

	"house-treasury/internal/core/ports"
	"house-treasury/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	treasuryRepo ports.TreasuryRepository
	ledgerRepo   ports.LedgerRepository
	now          func() time.Time
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	treasuryRepo ports.TreasuryRepository,
	ledgerRepo ports.LedgerRepository,
) ports.ReportingService {
	return &reportingService{
		treasuryRepo: treasuryRepo,
		ledgerRepo:   ledgerRepo,
		now:          time.Now,
	}
}

// GetTreasuryStats aggregates the treasury's ledger over period
// (day, week, month or all).
func (s *reportingService) GetTreasuryStats(ctx context.Context, treasuryID uuid.UUID, period string) (*ports.TreasuryStats, error) {
	var since *time.Time

	switch period {
	case "day":
		t := s.now().AddDate(0, 0, -1)
		since = &t
	case "week":
		t := s.now().AddDate(0, 0, -7)
		since = &t
	case "month":
		t := s.now().AddDate(0, -1, 0)
		since = &t
	case "all", "":
		// No time filter
	default:
		return nil, apperror.Validation("invalid period: must be day, week, month, or all")
	}

	treasury, err := s.treasuryRepo.GetByID(ctx, treasuryID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if treasury == nil {
		return nil, apperror.ErrNotFound("treasury")
	}

	stats, err := s.ledgerRepo.Stats(ctx, treasuryID, since)
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	return stats, nil
}
