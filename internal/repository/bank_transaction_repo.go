package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
)

type bankTransactionRepo struct {
	db *gorm.DB
}

func (r *bankTransactionRepo) CreateIfNew(ctx context.Context, tx *models.BankTransaction) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_transaction_id"}}, DoNothing: true}).
		Create(tx)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *bankTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("bank transaction", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *bankTransactionRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("bank transaction", id.String())
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *bankTransactionRepo) ListPending(ctx context.Context, scope ListScope) ([]models.BankTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", models.TransactionPending).
		Order("transaction_date ASC, id ASC")

	if scope.From != nil {
		query = query.Where("transaction_date >= ?", *scope.From)
	}
	if scope.To != nil {
		query = query.Where("transaction_date < ?", *scope.To)
	}
	if scope.Limit > 0 {
		query = query.Limit(scope.Limit)
	}

	var txs []models.BankTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// List pages transactions by id cursor for the dashboard surface.
func (r *bankTransactionRepo) List(ctx context.Context, status models.TransactionStatus, cursor string, limit int) ([]models.BankTransaction, string, bool, error) {
	query := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit + 1)

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}

	var txs []models.BankTransaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, "", false, err
	}

	hasMore := false
	nextCursor := ""
	if len(txs) > limit {
		hasMore = true
		nextCursor = txs[limit-1].ID.String()
		txs = txs[:limit]
	}
	return txs, nextCursor, hasMore, nil
}

func (r *bankTransactionRepo) Update(ctx context.Context, tx *models.BankTransaction) error {
	return r.db.WithContext(ctx).Save(tx).Error
}
