// Package repository provides the persistence layer: gorm-backed repositories
// behind narrow interfaces, and a Store that exposes an explicit
// WithTransaction unit of work so the atomicity contract is visible at the
// call site.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/models"
)

// Store bundles the repositories and the transactional boundary. Inside
// WithTransaction every repository obtained from the passed Store runs on the
// same database transaction.
type Store interface {
	WithTransaction(ctx context.Context, fn func(tx Store) error) error

	BankTransactions() BankTransactionRepository
	Invoices() InvoiceRepository
	Customers() CustomerRepository
	Payments() PaymentRepository
	Logs() ReconciliationLogRepository
}

// ListScope bounds a batch run. Zero values mean unbounded.
type ListScope struct {
	From  *time.Time
	To    *time.Time
	Limit int
}

type BankTransactionRepository interface {
	// CreateIfNew inserts the transaction unless its external id already
	// exists; it reports whether a row was created.
	CreateIfNew(ctx context.Context, tx *models.BankTransaction) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error)
	// GetByIDForUpdate takes a row lock; only valid inside WithTransaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error)
	ListPending(ctx context.Context, scope ListScope) ([]models.BankTransaction, error)
	List(ctx context.Context, status models.TransactionStatus, cursor string, limit int) ([]models.BankTransaction, string, bool, error)
	Update(ctx context.Context, tx *models.BankTransaction) error
}

type InvoiceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	// GetByIDForUpdate takes a row lock; only valid inside WithTransaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	GetOpenByNumber(ctx context.Context, number string) (*models.Invoice, error)
	// FindOpenByBalance returns open invoices whose outstanding balance is
	// within tolerance of amount.
	FindOpenByBalance(ctx context.Context, amount, tolerance decimal.Decimal, limit int) ([]models.Invoice, error)
	// FindOpenAboveBalance returns open invoices whose outstanding balance
	// strictly exceeds amount (partial-payment candidates).
	FindOpenAboveBalance(ctx context.Context, amount decimal.Decimal, limit int) ([]models.Invoice, error)
	ListOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error)
	Update(ctx context.Context, inv *models.Invoice) error
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetByCode(ctx context.Context, code string) (*models.Customer, error)
	// RefreshAggregates recomputes CurrentBalance and TotalPaid from the
	// invoice and payment tables. Best-effort reporting fields, see models.
	RefreshAggregates(ctx context.Context, id uuid.UUID) error
}

type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ExistsForBankTransaction(ctx context.Context, bankTxID uuid.UUID) (bool, error)
	Update(ctx context.Context, p *models.Payment) error
}

type ReconciliationLogRepository interface {
	Append(ctx context.Context, entry *models.ReconciliationLog) error
	ListByTransaction(ctx context.Context, bankTxID uuid.UUID) ([]models.ReconciliationLog, error)
}
