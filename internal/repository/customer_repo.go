package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
)

type customerRepo struct {
	db *gorm.DB
}

func (r *customerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("customer", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *customerRepo) GetByCode(ctx context.Context, code string) (*models.Customer, error) {
	var c models.Customer
	err := r.db.WithContext(ctx).First(&c, "customer_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("customer", code)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// RefreshAggregates recomputes the reporting aggregates from the invoice and
// payment tables. The payment sum spans all statuses so a refunded original
// and its negative reversal cancel out.
func (r *customerRepo) RefreshAggregates(ctx context.Context, id uuid.UUID) error {
	balance := r.db.Model(&models.Invoice{}).
		Select("COALESCE(SUM(balance_amount), 0)").
		Where("customer_id = ? AND status IN ?", id, models.OpenInvoiceStatuses)
	paid := r.db.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("customer_id = ?", id)

	return r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_balance": gorm.Expr("(?)", balance),
			"total_paid":      gorm.Expr("(?)", paid),
			"updated_at":      time.Now(),
		}).Error
}
