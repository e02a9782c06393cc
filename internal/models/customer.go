package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer aggregates (CurrentBalance, TotalPaid) are refreshed best-effort
// after a posting commits; they are reporting fields, not part of the atomic
// posting unit.
type Customer struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"index"`
	CustomerCode   string    `gorm:"uniqueIndex"`
	Email          string
	CurrentBalance decimal.Decimal `gorm:"type:numeric(18,2)"`
	TotalPaid      decimal.Decimal `gorm:"type:numeric(18,2)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
