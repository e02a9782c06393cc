package reconciliation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/repository"
	"bank-reconciliation-engine/internal/services/matching"
)

// ManualMatchRequest is an operator-supplied match. Scoring is bypassed but
// every posting invariant still applies.
type ManualMatchRequest struct {
	TransactionID uuid.UUID
	CustomerID    uuid.UUID
	InvoiceID     *uuid.UUID
	Amount        decimal.Decimal
	Notes         string
	Actor         string
}

// ManualOverride handles the operator path: explicit matches and rejections.
type ManualOverride struct {
	store   repository.Store
	poster  *PaymentPoster
	machine *StateMachine
	logger  *slog.Logger
	now     func() time.Time
}

func NewManualOverride(store repository.Store, poster *PaymentPoster, machine *StateMachine, logger *slog.Logger) *ManualOverride {
	return &ManualOverride{
		store:   store,
		poster:  poster,
		machine: machine,
		logger:  logger,
		now:     time.Now,
	}
}

// Match posts an operator-chosen match, tier MANUAL. A rejected or unmatched
// transaction may be matched here; that is a fresh attempt layered on top of
// the existing audit trail.
func (m *ManualOverride) Match(ctx context.Context, req ManualMatchRequest) (*MatchResult, error) {
	if req.Actor == "" {
		return nil, apperrors.Validation("actor", "is required")
	}

	post, err := m.poster.Post(ctx, PostRequest{
		TransactionID: req.TransactionID,
		CustomerID:    req.CustomerID,
		InvoiceID:     req.InvoiceID,
		Amount:        req.Amount,
		Tier:          matching.TierManual,
		Score:         1.0,
		Actor:         req.Actor,
		Notes:         req.Notes,
		Manual:        true,
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("manual match posted",
		"transaction_id", req.TransactionID.String(),
		"payment_id", post.PaymentID.String(),
		"actor", req.Actor,
	)

	amount := req.Amount
	return &MatchResult{
		Success:       true,
		MatchType:     matching.TierManual,
		Confidence:    1.0,
		CustomerID:    &req.CustomerID,
		InvoiceID:     req.InvoiceID,
		MatchedAmount: &amount,
		Reason:        req.Notes,
	}, nil
}

// Reject marks a transaction REJECTED with a mandatory reason. No payment is
// created; the state is terminal until superseded by a new manual match.
func (m *ManualOverride) Reject(ctx context.Context, transactionID uuid.UUID, reason, actor string) error {
	if reason == "" {
		return apperrors.Validation("reason", "is required")
	}
	if actor == "" {
		return apperrors.Validation("actor", "is required")
	}

	return m.store.WithTransaction(ctx, func(tx repository.Store) error {
		btx, err := tx.BankTransactions().GetByIDForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}

		now := m.now()
		if err := m.machine.Transition(btx, models.TransactionRejected, actor, true, now); err != nil {
			return err
		}
		if err := tx.BankTransactions().Update(ctx, btx); err != nil {
			return err
		}

		return tx.Logs().Append(ctx, &models.ReconciliationLog{
			ID:                uuid.New(),
			BankTransactionID: btx.ID,
			Action:            "reject",
			Tier:              string(matching.TierManual),
			Reason:            reason,
			PerformedBy:       actor,
			CreatedAt:         now,
		})
	})
}
