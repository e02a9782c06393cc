package reconciliation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/repository"
	"bank-reconciliation-engine/internal/services/matching"
)

// PostRequest is an accepted match handed to the poster, either by the
// orchestrator (scored) or by an operator (tier MANUAL).
type PostRequest struct {
	TransactionID uuid.UUID
	CustomerID    uuid.UUID
	InvoiceID     *uuid.UUID
	Amount        decimal.Decimal
	Tier          matching.Tier
	Score         float64
	Actor         string
	Notes         string
	Manual        bool
}

// PostResult reports the posted payment and the recomputed invoice state.
type PostResult struct {
	PaymentID         uuid.UUID                `json:"payment_id"`
	TransactionStatus models.TransactionStatus `json:"transaction_status"`
	InvoiceStatus     models.InvoiceStatus     `json:"invoice_status,omitempty"`
	NewBalance        decimal.Decimal          `json:"new_balance"`
}

// PaymentPoster posts one accepted match as a Payment. Everything it writes
// for one request happens inside a single database transaction: the payment
// insert, the invoice aggregate update, the bank-transaction transition and
// the audit entry apply together or not at all. The invoice row is locked
// FOR UPDATE so two concurrent postings cannot both read a stale balance.
type PaymentPoster struct {
	store   repository.Store
	machine *StateMachine
	logger  *slog.Logger
	now     func() time.Time
}

func NewPaymentPoster(store repository.Store, machine *StateMachine, logger *slog.Logger) *PaymentPoster {
	return &PaymentPoster{
		store:   store,
		machine: machine,
		logger:  logger,
		now:     time.Now,
	}
}

func (p *PaymentPoster) Post(ctx context.Context, req PostRequest) (*PostResult, error) {
	if !req.Amount.IsPositive() {
		return nil, apperrors.Validation("amount", "must be greater than zero")
	}
	if req.TransactionID == uuid.Nil {
		return nil, apperrors.Validation("transaction_id", "is required")
	}
	if req.CustomerID == uuid.Nil {
		return nil, apperrors.Validation("customer_id", "is required")
	}

	var result PostResult
	err := p.store.WithTransaction(ctx, func(tx repository.Store) error {
		now := p.now()

		// Re-verify the lifecycle state under the row lock; the pre-scan
		// outside the transaction may be stale.
		btx, err := tx.BankTransactions().GetByIDForUpdate(ctx, req.TransactionID)
		if err != nil {
			return err
		}
		if err := p.machine.Authorize(btx.Status, models.TransactionMatched, req.Manual); err != nil {
			return err
		}

		exists, err := tx.Payments().ExistsForBankTransaction(ctx, btx.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.Consistency("payment already exists for bank transaction %s", btx.ID)
		}

		customer, err := tx.Customers().GetByID(ctx, req.CustomerID)
		if err != nil {
			return err
		}

		var invoice *models.Invoice
		if req.InvoiceID != nil {
			invoice, err = tx.Invoices().GetByIDForUpdate(ctx, *req.InvoiceID)
			if err != nil {
				return err
			}
			if invoice.CustomerID != customer.ID {
				return apperrors.Validation("invoice_id", "invoice does not belong to customer")
			}
			if !invoice.Open() {
				return apperrors.Validation("invoice_id", "invoice is not open for payment")
			}
			// Overpayment is rejected outright; absorbing the excess or
			// creating a credit is a separate explicit operation.
			if req.Amount.GreaterThan(invoice.BalanceAmount) {
				return apperrors.Validation("amount", "exceeds invoice balance")
			}
		}

		payment := &models.Payment{
			ID:                uuid.New(),
			CustomerID:        customer.ID,
			InvoiceID:         req.InvoiceID,
			BankTransactionID: &btx.ID,
			Amount:            req.Amount,
			PaymentDate:       btx.TransactionDate,
			PaymentMethod:     "bank_transfer",
			Reference:         btx.Reference,
			Status:            models.PaymentConfirmed,
			IsReconciled:      true,
			ReconciledAt:      &now,
			ReconciledBy:      req.Actor,
			CreatedAt:         now,
		}
		if err := tx.Payments().Create(ctx, payment); err != nil {
			return err
		}

		target := models.TransactionMatched
		if invoice != nil {
			invoice.ApplyPayment(req.Amount, now)
			if invoice.BalanceAmount.IsNegative() {
				return apperrors.Consistency("invoice %s balance went negative", invoice.ID)
			}
			if err := tx.Invoices().Update(ctx, invoice); err != nil {
				return err
			}
			if invoice.BalanceAmount.IsPositive() {
				target = models.TransactionPartiallyMatched
			}
		}

		if err := p.machine.Transition(btx, target, req.Actor, req.Manual, now); err != nil {
			return err
		}
		btx.MatchedCustomerID = &customer.ID
		btx.MatchedInvoiceID = req.InvoiceID
		btx.ConfidenceScore = req.Score
		if err := tx.BankTransactions().Update(ctx, btx); err != nil {
			return err
		}

		entry := &models.ReconciliationLog{
			ID:                uuid.New(),
			BankTransactionID: btx.ID,
			CustomerID:        &customer.ID,
			InvoiceID:         req.InvoiceID,
			PaymentID:         &payment.ID,
			Action:            "match",
			Tier:              string(req.Tier),
			Score:             req.Score,
			Reason:            req.Notes,
			PerformedBy:       req.Actor,
			Details:           postDetails(req, invoice, payment),
			CreatedAt:         now,
		}
		if err := tx.Logs().Append(ctx, entry); err != nil {
			return err
		}

		result = PostResult{
			PaymentID:         payment.ID,
			TransactionStatus: btx.Status,
			NewBalance:        decimal.Zero,
		}
		if invoice != nil {
			result.InvoiceStatus = invoice.Status
			result.NewBalance = invoice.BalanceAmount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.refreshCustomerAggregates(ctx, req.CustomerID)
	return &result, nil
}

// Refund reverses a posted payment: a new negative-amount Payment is created,
// the original flips to refunded, the invoice aggregates are recomputed and a
// linked bank transaction returns to UNMATCHED. The historical amount is
// never touched.
func (p *PaymentPoster) Refund(ctx context.Context, paymentID uuid.UUID, actor, reason string) (*PostResult, error) {
	if reason == "" {
		return nil, apperrors.Validation("reason", "is required")
	}

	var result PostResult
	var customerID uuid.UUID
	err := p.store.WithTransaction(ctx, func(tx repository.Store) error {
		now := p.now()

		payment, err := tx.Payments().GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == models.PaymentRefunded {
			return apperrors.Conflict("payment %s already refunded", payment.ID)
		}
		customerID = payment.CustomerID

		reversal := &models.Payment{
			ID:            uuid.New(),
			CustomerID:    payment.CustomerID,
			InvoiceID:     payment.InvoiceID,
			Amount:        payment.Amount.Neg(),
			PaymentDate:   now,
			PaymentMethod: payment.PaymentMethod,
			Reference:     "refund of " + payment.ID.String(),
			Status:        models.PaymentConfirmed,
			ReconciledBy:  actor,
			CreatedAt:     now,
		}
		if err := tx.Payments().Create(ctx, reversal); err != nil {
			return err
		}

		payment.Status = models.PaymentRefunded
		if err := tx.Payments().Update(ctx, payment); err != nil {
			return err
		}

		if payment.InvoiceID != nil {
			invoice, err := tx.Invoices().GetByIDForUpdate(ctx, *payment.InvoiceID)
			if err != nil {
				return err
			}
			invoice.ApplyPayment(payment.Amount.Neg(), now)
			if err := tx.Invoices().Update(ctx, invoice); err != nil {
				return err
			}
			result.InvoiceStatus = invoice.Status
			result.NewBalance = invoice.BalanceAmount
		}

		if payment.BankTransactionID != nil {
			btx, err := tx.BankTransactions().GetByIDForUpdate(ctx, *payment.BankTransactionID)
			if err != nil {
				return err
			}
			if err := p.machine.Transition(btx, models.TransactionUnmatched, actor, true, now); err != nil {
				return err
			}
			if err := tx.BankTransactions().Update(ctx, btx); err != nil {
				return err
			}
			result.TransactionStatus = btx.Status

			entry := &models.ReconciliationLog{
				ID:                uuid.New(),
				BankTransactionID: btx.ID,
				CustomerID:        &payment.CustomerID,
				InvoiceID:         payment.InvoiceID,
				PaymentID:         &payment.ID,
				Action:            "refund",
				Tier:              string(matching.TierManual),
				Reason:            reason,
				PerformedBy:       actor,
				CreatedAt:         now,
			}
			if err := tx.Logs().Append(ctx, entry); err != nil {
				return err
			}
		}

		result.PaymentID = reversal.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.refreshCustomerAggregates(ctx, customerID)
	return &result, nil
}

// refreshCustomerAggregates runs after the posting transaction commits.
// Customer aggregates are reporting fields, deliberately not part of the
// atomic unit; a failure here is logged and left to the next refresh.
func (p *PaymentPoster) refreshCustomerAggregates(ctx context.Context, customerID uuid.UUID) {
	if customerID == uuid.Nil {
		return
	}
	if err := p.store.Customers().RefreshAggregates(ctx, customerID); err != nil {
		p.logger.Warn("customer aggregate refresh failed",
			"customer_id", customerID.String(),
			"error", err,
		)
	}
}

func postDetails(req PostRequest, invoice *models.Invoice, payment *models.Payment) datatypes.JSON {
	details := map[string]interface{}{
		"amount":     req.Amount.String(),
		"payment_id": payment.ID.String(),
		"manual":     req.Manual,
	}
	if invoice != nil {
		details["invoice_number"] = invoice.InvoiceNumber
		details["balance_after"] = invoice.BalanceAmount.String()
		details["invoice_status"] = string(invoice.Status)
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
