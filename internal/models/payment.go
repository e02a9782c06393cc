package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is the durable settlement record. Historical amounts are never
// mutated: a refund is a new negative-amount Payment plus a status flip on
// the original. The partial unique index on BankTransactionID is the last
// line of defense against double-posting one bank transaction.
type Payment struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CustomerID        uuid.UUID  `gorm:"type:uuid;index"`
	InvoiceID         *uuid.UUID `gorm:"type:uuid;index"`
	BankTransactionID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_payments_bank_tx,where:status <> 'refunded'"`
	Amount            decimal.Decimal `gorm:"type:numeric(18,2)"`
	PaymentDate       time.Time
	PaymentMethod     string
	Reference         string
	Status            PaymentStatus `gorm:"type:varchar(32);index"`
	IsReconciled      bool
	ReconciledAt      *time.Time
	ReconciledBy      string
	CreatedAt         time.Time
}
