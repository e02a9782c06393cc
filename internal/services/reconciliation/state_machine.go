// Package reconciliation owns the bank-transaction lifecycle: the state
// machine, atomic payment posting, the auto-reconcile batch orchestrator and
// the manual override path.
package reconciliation

import (
	"time"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
)

// StateMachine authorizes bank-transaction status transitions.
//
// PENDING is the only non-terminal state for the automatic path. MATCHED and
// PARTIALLY_MATCHED are terminal outright: the posted Payment must be
// refunded before the transaction can move again. UNMATCHED and REJECTED are
// terminal for the attempt but may be superseded by a new manual action,
// which starts a fresh attempt instead of mutating history.
type StateMachine struct{}

func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// CanAuto reports whether the automatic path may act on a transaction in the
// given state. Skipping non-PENDING rows is what makes repeated batch runs
// idempotent.
func (m *StateMachine) CanAuto(from models.TransactionStatus) bool {
	return from == models.TransactionPending
}

// Authorize checks a transition; manual marks operator-driven actions.
func (m *StateMachine) Authorize(from, to models.TransactionStatus, manual bool) error {
	if from == to {
		return apperrors.Conflict("transaction already %s", from)
	}

	switch from {
	case models.TransactionPending:
		return nil
	case models.TransactionUnmatched:
		if manual {
			return nil
		}
	case models.TransactionRejected:
		// Re-matching a rejected transaction is a new manual attempt; the
		// rejected log entry stays in the audit trail.
		if manual && (to == models.TransactionMatched || to == models.TransactionPartiallyMatched) {
			return nil
		}
	case models.TransactionMatched, models.TransactionPartiallyMatched:
		if to == models.TransactionUnmatched && manual {
			// Only the refund path comes through here.
			return nil
		}
	}
	return apperrors.Conflict("cannot transition transaction from %s to %s", from, to)
}

// Transition applies an authorized transition and stamps the matching fields.
func (m *StateMachine) Transition(tx *models.BankTransaction, to models.TransactionStatus, actor string, manual bool, now time.Time) error {
	if err := m.Authorize(tx.Status, to, manual); err != nil {
		return err
	}

	tx.Status = to
	switch to {
	case models.TransactionMatched, models.TransactionPartiallyMatched:
		t := now
		tx.MatchedAt = &t
		tx.MatchedBy = actor
	case models.TransactionUnmatched, models.TransactionRejected:
		tx.MatchedAt = nil
		tx.MatchedBy = actor
		tx.MatchedCustomerID = nil
		tx.MatchedInvoiceID = nil
		tx.ConfidenceScore = 0
	}
	return nil
}
