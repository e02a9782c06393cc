package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceSent          InvoiceStatus = "sent"
	InvoicePartiallyPaid InvoiceStatus = "partially_paid"
	InvoicePaid          InvoiceStatus = "paid"
	InvoiceOverdue       InvoiceStatus = "overdue"
	InvoiceCancelled     InvoiceStatus = "cancelled"
)

// OpenInvoiceStatuses are the statuses a payment can still be applied to.
var OpenInvoiceStatuses = []InvoiceStatus{InvoiceSent, InvoicePartiallyPaid, InvoiceOverdue}

type Invoice struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	InvoiceNumber string    `gorm:"uniqueIndex"`
	CustomerID    uuid.UUID `gorm:"type:uuid;index"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(18,2)"`
	PaidAmount    decimal.Decimal `gorm:"type:numeric(18,2)"`
	BalanceAmount decimal.Decimal `gorm:"type:numeric(18,2);index"`
	Status        InvoiceStatus   `gorm:"type:varchar(32);index"`
	DueDate       time.Time
	PaidDate      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvoiceStatusFor derives the status of a non-cancelled invoice purely from
// its aggregates and the clock. Every code path that recomputes an invoice
// status must go through this function; cancellation is the only status set
// outside it.
func InvoiceStatusFor(paid, total decimal.Decimal, dueDate, now time.Time) InvoiceStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return InvoicePaid
	case paid.IsPositive():
		return InvoicePartiallyPaid
	case now.After(dueDate):
		return InvoiceOverdue
	default:
		return InvoiceSent
	}
}

// Open reports whether the invoice can still receive payments.
func (i *Invoice) Open() bool {
	switch i.Status {
	case InvoiceSent, InvoicePartiallyPaid, InvoiceOverdue:
		return true
	}
	return false
}

// ApplyPayment adds amount to the paid aggregate, recomputes the balance and
// status, and stamps PaidDate on the transition into paid. The balance is
// clamped at zero; callers enforce amount <= BalanceAmount before calling.
func (i *Invoice) ApplyPayment(amount decimal.Decimal, now time.Time) {
	i.PaidAmount = i.PaidAmount.Add(amount)
	i.BalanceAmount = i.TotalAmount.Sub(i.PaidAmount)
	if i.BalanceAmount.IsNegative() {
		i.BalanceAmount = decimal.Zero
	}
	prev := i.Status
	i.Status = InvoiceStatusFor(i.PaidAmount, i.TotalAmount, i.DueDate, now)
	if i.Status == InvoicePaid && prev != InvoicePaid {
		t := now
		i.PaidDate = &t
	}
	if i.Status != InvoicePaid {
		i.PaidDate = nil
	}
	i.UpdatedAt = now
}
