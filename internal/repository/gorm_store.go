package repository

import (
	"context"

	"gorm.io/gorm"
)

// gormStore implements Store over a *gorm.DB. WithTransaction rebinds the
// repositories to the transaction handle, so callers never touch raw SQL
// transactions.
type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) WithTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) BankTransactions() BankTransactionRepository {
	return &bankTransactionRepo{db: s.db}
}

func (s *gormStore) Invoices() InvoiceRepository {
	return &invoiceRepo{db: s.db}
}

func (s *gormStore) Customers() CustomerRepository {
	return &customerRepo{db: s.db}
}

func (s *gormStore) Payments() PaymentRepository {
	return &paymentRepo{db: s.db}
}

func (s *gormStore) Logs() ReconciliationLogRepository {
	return &reconciliationLogRepo{db: s.db}
}
