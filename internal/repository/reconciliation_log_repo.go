package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bank-reconciliation-engine/internal/models"
)

type reconciliationLogRepo struct {
	db *gorm.DB
}

func (r *reconciliationLogRepo) Append(ctx context.Context, entry *models.ReconciliationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *reconciliationLogRepo) ListByTransaction(ctx context.Context, bankTxID uuid.UUID) ([]models.ReconciliationLog, error) {
	var entries []models.ReconciliationLog
	err := r.db.WithContext(ctx).
		Where("bank_transaction_id = ?", bankTxID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
