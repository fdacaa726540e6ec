package service

import (
	"context"
	"errors"
	"testing"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRiskService_Apply_Clean(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository(ctrl)
	svc := NewRiskService(repo, zerolog.Nop())
	paymentID := uuid.New()

	repo.EXPECT().SetRisk(gomock.Any(), paymentID, domain.RiskAssessment{
		Level: domain.RiskLevelLow,
		Score: 0,
		Flags: []string{},
	}).Return(nil)

	a, err := svc.Apply(context.Background(), paymentID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLevelLow, a.Level)
	assert.Equal(t, 0, a.Score)
}

func TestRiskService_Apply_MediumThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository(ctrl)
	svc := NewRiskService(repo, zerolog.Nop())
	paymentID := uuid.New()

	repo.EXPECT().SetRisk(gomock.Any(), paymentID, gomock.Any()).Return(nil)

	a, err := svc.Apply(context.Background(), paymentID,
		[]domain.QuarantineReason{domain.ReasonUnknownAccountRef})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLevelMedium, a.Level)
	assert.Equal(t, 35, a.Score)
	assert.Equal(t, []string{"UNKNOWN_ACCOUNT_REF"}, a.Flags)
}

func TestRiskService_Apply_HighThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository(ctrl)
	svc := NewRiskService(repo, zerolog.Nop())
	paymentID := uuid.New()

	repo.EXPECT().SetRisk(gomock.Any(), paymentID, gomock.Any()).Return(nil)

	a, err := svc.Apply(context.Background(), paymentID,
		[]domain.QuarantineReason{domain.ReasonWebhookSecretMismatch})
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLevelHigh, a.Level)
	assert.Equal(t, 80, a.Score)
}

func TestRiskService_Apply_DedupsReasons(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository(ctrl)
	svc := NewRiskService(repo, zerolog.Nop())
	paymentID := uuid.New()

	repo.EXPECT().SetRisk(gomock.Any(), paymentID, gomock.Any()).Return(nil)

	// The same reason reported twice counts once.
	a, err := svc.Apply(context.Background(), paymentID, []domain.QuarantineReason{
		domain.ReasonInvalidAmount,
		domain.ReasonInvalidAmount,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, a.Score)
	assert.Equal(t, []string{"INVALID_AMOUNT"}, a.Flags)
}

func TestRiskService_Apply_PersistFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository(ctrl)
	svc := NewRiskService(repo, zerolog.Nop())
	paymentID := uuid.New()

	repo.EXPECT().SetRisk(gomock.Any(), paymentID, gomock.Any()).
		Return(errors.New("db down"))

	// The assessment is still computed and returned alongside the error.
	a, err := svc.Apply(context.Background(), paymentID,
		[]domain.QuarantineReason{domain.ReasonPaybillMismatch})
	require.Error(t, err)
	assert.Equal(t, domain.RiskLevelMedium, a.Level)
	assert.Equal(t, 50, a.Score)
}
