package reconciliation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/services/matching"
)

// MatchResult is the per-attempt outcome surfaced to collaborators
// (dashboards, notification senders).
type MatchResult struct {
	Success       bool             `json:"success"`
	MatchType     matching.Tier    `json:"match_type"`
	Confidence    float64          `json:"confidence"`
	CustomerID    *uuid.UUID       `json:"customer_id,omitempty"`
	InvoiceID     *uuid.UUID       `json:"invoice_id,omitempty"`
	MatchedAmount *decimal.Decimal `json:"matched_amount,omitempty"`
	Reason        string           `json:"reason,omitempty"`
}

// ItemDetail records one transaction's outcome within a batch run.
type ItemDetail struct {
	TransactionID uuid.UUID     `json:"transaction_id"`
	Status        string        `json:"status"`
	Tier          matching.Tier `json:"tier,omitempty"`
	Confidence    float64       `json:"confidence,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// AutoReconcileResult summarizes a batch run. It is an explicit accumulator
// passed back to the caller; the orchestrator keeps no global counters.
type AutoReconcileResult struct {
	Total            int          `json:"total"`
	Matched          int          `json:"matched"`
	PartiallyMatched int          `json:"partially_matched"`
	Unmatched        int          `json:"unmatched"`
	Skipped          int          `json:"skipped"`
	Failed           int          `json:"failed"`
	Details          []ItemDetail `json:"details"`
}

const (
	itemMatched          = "matched"
	itemPartiallyMatched = "partially_matched"
	itemUnmatched        = "unmatched"
	itemSkipped          = "skipped"
	itemFailed           = "failed"
)

func (r *AutoReconcileResult) add(d ItemDetail) {
	r.Total++
	switch d.Status {
	case itemMatched:
		r.Matched++
	case itemPartiallyMatched:
		r.PartiallyMatched++
	case itemUnmatched:
		r.Unmatched++
	case itemSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Details = append(r.Details, d)
}
