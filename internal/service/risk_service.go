package service

import (
	"context"
	"fmt"
	"sort"

	"sacco-ledger/internal/core/domain"
	"sacco-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// reasonWeights scores each quarantine-worthy condition. The real scoring
// engine is pluggable behind ports.RiskGate; this table keeps the contract
// deterministic and cheap enough to run inside the webhook ack budget.
var reasonWeights = map[domain.QuarantineReason]int{
	domain.ReasonWebhookSecretMismatch: 80,
	domain.ReasonPaybillMismatch:       50,
	domain.ReasonInvalidChecksumRef:    45,
	domain.ReasonInvalidAmount:         40,
	domain.ReasonUnknownAccountRef:     35,
	domain.ReasonDuplicateReceipt:      30,
	domain.ReasonIdempotentReplay:      15,
}

const (
	riskHighThreshold   = 70
	riskMediumThreshold = 30
)

// RiskService implements ports.RiskGate with a reason-weight table.
// Apply is idempotent per (payment, reasons) and never blocks on anything
// beyond the payment repository.
type RiskService struct {
	paymentRepo ports.PaymentRepository
	log         zerolog.Logger
}

// NewRiskService creates a new RiskService.
func NewRiskService(paymentRepo ports.PaymentRepository, log zerolog.Logger) *RiskService {
	return &RiskService{paymentRepo: paymentRepo, log: log}
}

// Apply classifies the payment given the observed conditions and persists
// the assessment. Callers log and swallow errors: risk never blocks an ack.
func (s *RiskService) Apply(ctx context.Context, paymentID uuid.UUID, reasons []domain.QuarantineReason) (domain.RiskAssessment, error) {
	score := 0
	flags := make([]string, 0, len(reasons))
	seen := map[domain.QuarantineReason]bool{}
	for _, r := range reasons {
		if seen[r] {
			continue
		}
		seen[r] = true
		score += reasonWeights[r]
		flags = append(flags, string(r))
	}
	sort.Strings(flags)

	level := domain.RiskLevelLow
	switch {
	case score >= riskHighThreshold:
		level = domain.RiskLevelHigh
	case score >= riskMediumThreshold:
		level = domain.RiskLevelMedium
	}

	assessment := domain.RiskAssessment{Level: level, Score: score, Flags: flags}

	if err := s.paymentRepo.SetRisk(ctx, paymentID, assessment); err != nil {
		return assessment, fmt.Errorf("persist risk assessment: %w", err)
	}

	s.log.Debug().
		Str("payment_id", paymentID.String()).
		Str("risk_level", string(level)).
		Int("risk_score", score).
		Strs("flags", flags).
		Msg("risk assessment applied")

	return assessment, nil
}
