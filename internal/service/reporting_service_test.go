package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"house-treasury/internal/core/ports"
	"house-treasury/internal/core/ports/mocks"
	"house-treasury/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestReportingService_GetTreasuryStats_All(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTreasuryRepo := mocks.NewMockTreasuryRepository(ctrl)
	mockLedgerRepo := mocks.NewMockLedgerRepository(ctrl)

	svc := NewReportingService(mockTreasuryRepo, mockLedgerRepo)

	tr := fundedTreasury(1000, 12)
	expected := &ports.TreasuryStats{
		GamesSettled:  12,
		HouseWins:     7,
		HouseLosses:   5,
		FeesCollected: 12,
		SettlementNet: 93,
		TotalFunded:   1000,
	}

	mockTreasuryRepo.EXPECT().GetByID(gomock.Any(), tr.ID).Return(tr, nil)
	mockLedgerRepo.EXPECT().Stats(gomock.Any(), tr.ID, (*time.Time)(nil)).Return(expected, nil)

	result, err := svc.GetTreasuryStats(context.Background(), tr.ID, "all")
	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestReportingService_GetTreasuryStats_WithPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTreasuryRepo := mocks.NewMockTreasuryRepository(ctrl)
	mockLedgerRepo := mocks.NewMockLedgerRepository(ctrl)

	svc := NewReportingService(mockTreasuryRepo, mockLedgerRepo).(*reportingService)
	fixed := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	tr := fundedTreasury(1000, 0)
	mockTreasuryRepo.EXPECT().GetByID(gomock.Any(), tr.ID).Return(tr, nil)
	mockLedgerRepo.EXPECT().Stats(gomock.Any(), tr.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, since *time.Time) (*ports.TreasuryStats, error) {
			require.NotNil(t, since)
			assert.Equal(t, fixed.AddDate(0, 0, -7), *since)
			return &ports.TreasuryStats{GamesSettled: 3}, nil
		})

	result, err := svc.GetTreasuryStats(context.Background(), tr.ID, "week")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.GamesSettled)
}

func TestReportingService_GetTreasuryStats_InvalidPeriod(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewReportingService(mocks.NewMockTreasuryRepository(ctrl), mocks.NewMockLedgerRepository(ctrl))

	_, err := svc.GetTreasuryStats(context.Background(), uuid.New(), "fortnight")
	assertAppError(t, err, apperror.CodeValidation)
}

func TestReportingService_GetTreasuryStats_UnknownTreasury(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTreasuryRepo := mocks.NewMockTreasuryRepository(ctrl)
	svc := NewReportingService(mockTreasuryRepo, mocks.NewMockLedgerRepository(ctrl))

	id := uuid.New()
	mockTreasuryRepo.EXPECT().GetByID(gomock.Any(), id).Return(nil, nil)

	_, err := svc.GetTreasuryStats(context.Background(), id, "")
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestReportingService_GetTreasuryStats_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTreasuryRepo := mocks.NewMockTreasuryRepository(ctrl)
	mockLedgerRepo := mocks.NewMockLedgerRepository(ctrl)
	svc := NewReportingService(mockTreasuryRepo, mockLedgerRepo)

	tr := fundedTreasury(1000, 0)
	mockTreasuryRepo.EXPECT().GetByID(gomock.Any(), tr.ID).Return(tr, nil)
	mockLedgerRepo.EXPECT().Stats(gomock.Any(), tr.ID, gomock.Any()).Return(nil, errors.New("db error"))

	_, err := svc.GetTreasuryStats(context.Background(), tr.ID, "month")
	assertAppError(t, err, apperror.CodeInternal)
}
