package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
)

type invoiceRepo struct {
	db *gorm.DB
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("invoice", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetByIDForUpdate locks the invoice row (SELECT ... FOR UPDATE). The invoice
// is the contended resource during posting; two concurrent postings against
// the same invoice serialize here.
func (r *invoiceRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("invoice", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) GetOpenByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.db.WithContext(ctx).
		Where("invoice_number = ? AND status IN ?", number, models.OpenInvoiceStatuses).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("invoice", number)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) FindOpenByBalance(ctx context.Context, amount, tolerance decimal.Decimal, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status IN ?", models.OpenInvoiceStatuses).
		Where("ABS(balance_amount - ?) <= ?", amount, tolerance).
		Order("due_date ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) FindOpenAboveBalance(ctx context.Context, amount decimal.Decimal, limit int) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("status IN ?", models.OpenInvoiceStatuses).
		Where("balance_amount > ?", amount).
		Order("balance_amount ASC").
		Limit(limit).
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) ListOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status IN ?", customerID, models.OpenInvoiceStatuses).
		Order("due_date ASC").
		Find(&invoices).Error
	return invoices, err
}

func (r *invoiceRepo) Update(ctx context.Context, inv *models.Invoice) error {
	return r.db.WithContext(ctx).Save(inv).Error
}
