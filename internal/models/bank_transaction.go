package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of an ingested bank transaction.
// Transitions are owned by the reconciliation state machine; nothing else
// writes Status.
type TransactionStatus string

const (
	TransactionPending          TransactionStatus = "pending"
	TransactionMatched          TransactionStatus = "matched"
	TransactionPartiallyMatched TransactionStatus = "partially_matched"
	TransactionUnmatched        TransactionStatus = "unmatched"
	TransactionRejected         TransactionStatus = "rejected"
)

// Terminal reports whether s admits no further automatic transition.
// A terminal transaction can only be superseded by a new manual attempt.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TransactionMatched, TransactionPartiallyMatched, TransactionRejected:
		return true
	}
	return false
}

// BankTransaction is an immutable statement fact once ingested. Rows are
// never deleted; only the matching fields below mutate.
type BankTransaction struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ExternalTransactionID string          `gorm:"uniqueIndex"`
	TransactionDate       time.Time       `gorm:"column:transaction_date;index"`
	Amount                decimal.Decimal `gorm:"type:numeric(18,2)"`
	Currency              string
	Reference             string
	Status                TransactionStatus `gorm:"type:varchar(32);index"`
	MatchedCustomerID     *uuid.UUID
	MatchedInvoiceID      *uuid.UUID
	ConfidenceScore       float64
	MatchedAt             *time.Time
	MatchedBy             string
	CreatedAt             time.Time
}
