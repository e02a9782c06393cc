package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
)

type paymentRepo struct {
	db *gorm.DB
}

func (r *paymentRepo) Create(ctx context.Context, p *models.Payment) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// The partial unique index on bank_transaction_id fired: another
		// posting won the race.
		return apperrors.Conflict("payment already posted for bank transaction")
	}
	return err
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("payment", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) ExistsForBankTransaction(ctx context.Context, bankTxID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("bank_transaction_id = ? AND status <> ?", bankTxID, models.PaymentRefunded).
		Count(&count).Error
	return count > 0, err
}

func (r *paymentRepo) Update(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Save(p).Error
}
