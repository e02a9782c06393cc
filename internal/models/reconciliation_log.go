package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReconciliationLog is the append-only audit trail: one entry per attempted
// match, successful or not. Details carries the scorer's evidence breakdown.
type ReconciliationLog struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BankTransactionID uuid.UUID  `gorm:"type:uuid;index"`
	CustomerID        *uuid.UUID `gorm:"type:uuid"`
	InvoiceID         *uuid.UUID `gorm:"type:uuid"`
	PaymentID         *uuid.UUID `gorm:"type:uuid"`
	Action            string
	Tier              string
	Score             float64
	Reason            string
	PerformedBy       string
	Details           datatypes.JSON
	CreatedAt         time.Time
}
