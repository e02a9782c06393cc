// Package ingestion turns normalized statement rows, produced by the
// out-of-process statement importer, into canonical BankTransaction records.
package ingestion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/repository"
)

// Row is one normalized statement line as delivered by the importer.
type Row struct {
	ExternalTransactionID string          `json:"external_transaction_id"`
	TransactionDate       time.Time       `json:"transaction_date"`
	Amount                decimal.Decimal `json:"amount"`
	Reference             string          `json:"reference"`
	Currency              string          `json:"currency"`
}

// RowOutcome explains what happened to one row.
type RowOutcome struct {
	ExternalTransactionID string     `json:"external_transaction_id"`
	Status                string     `json:"status"` // accepted | duplicate | rejected
	TransactionID         *uuid.UUID `json:"transaction_id,omitempty"`
	Reason                string     `json:"reason,omitempty"`
}

// Result summarizes one ingestion call.
type Result struct {
	Accepted   int          `json:"accepted"`
	Duplicates int          `json:"duplicates"`
	Rejected   int          `json:"rejected"`
	Details    []RowOutcome `json:"details"`
}

// Normalizer validates and persists statement rows. Duplicate detection is
// by the external transaction id natural key; the unique index makes the
// check race-safe.
type Normalizer struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewNormalizer(store repository.Store, logger *slog.Logger) *Normalizer {
	return &Normalizer{store: store, logger: logger, now: time.Now}
}

// Ingest processes the batch row by row. Bad rows are rejected individually;
// the batch never aborts.
func (n *Normalizer) Ingest(ctx context.Context, rows []Row) (*Result, error) {
	result := &Result{}

	for _, row := range rows {
		outcome := RowOutcome{ExternalTransactionID: row.ExternalTransactionID}

		if reason := validateRow(row); reason != "" {
			outcome.Status = "rejected"
			outcome.Reason = reason
			result.Rejected++
			result.Details = append(result.Details, outcome)
			continue
		}

		tx := &models.BankTransaction{
			ID:                    uuid.New(),
			ExternalTransactionID: strings.TrimSpace(row.ExternalTransactionID),
			TransactionDate:       row.TransactionDate,
			Amount:                row.Amount,
			Currency:              strings.ToUpper(strings.TrimSpace(row.Currency)),
			Reference:             canonicalReference(row.Reference),
			Status:                models.TransactionPending,
			CreatedAt:             n.now(),
		}

		created, err := n.store.BankTransactions().CreateIfNew(ctx, tx)
		if err != nil {
			return nil, err
		}
		if !created {
			outcome.Status = "duplicate"
			outcome.Reason = "external transaction id already ingested"
			result.Duplicates++
			result.Details = append(result.Details, outcome)
			continue
		}

		outcome.Status = "accepted"
		outcome.TransactionID = &tx.ID
		result.Accepted++
		result.Details = append(result.Details, outcome)
	}

	n.logger.Info("statement batch ingested",
		"accepted", result.Accepted,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected,
	)
	return result, nil
}

func validateRow(row Row) string {
	if strings.TrimSpace(row.ExternalTransactionID) == "" {
		return "external_transaction_id is required"
	}
	if row.TransactionDate.IsZero() {
		return "transaction_date is required"
	}
	if !row.Amount.IsPositive() {
		return "amount must be greater than zero"
	}
	return ""
}

// canonicalReference collapses runs of whitespace so downstream token
// matching sees a stable form.
func canonicalReference(ref string) string {
	return strings.Join(strings.Fields(ref), " ")
}
