package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"gorm.io/datatypes"

	"bank-reconciliation-engine/internal/config"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/repository"
	"bank-reconciliation-engine/internal/services/matching"
)

const autoActor = "auto-reconcile"

// Orchestrator drives the engine over a batch of pending transactions.
// Transactions are independent units of work, so they run concurrently on a
// bounded worker pool; each item posts inside its own database transaction.
// Item failures are recorded in the result and never abort the batch, and
// repeated runs are idempotent because non-PENDING rows are skipped.
type Orchestrator struct {
	store     repository.Store
	generator *matching.Generator
	scorer    *matching.Scorer
	poster    *PaymentPoster
	machine   *StateMachine
	cfg       config.BatchConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrchestrator(
	store repository.Store,
	generator *matching.Generator,
	scorer *matching.Scorer,
	poster *PaymentPoster,
	machine *StateMachine,
	cfg config.BatchConfig,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		generator: generator,
		scorer:    scorer,
		poster:    poster,
		machine:   machine,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Run processes every PENDING transaction in scope. When the run deadline
// expires, no new items are scheduled; items already started finish as a
// unit.
func (o *Orchestrator) Run(ctx context.Context, scope repository.ListScope) (*AutoReconcileResult, error) {
	if o.cfg.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunDeadline)
		defer cancel()
	}

	pending, err := o.store.BankTransactions().ListPending(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}

	o.logger.Info("auto-reconcile run started",
		"pending", len(pending),
		"workers", o.cfg.WorkerPoolSize,
	)

	pool, err := ants.NewPool(o.cfg.WorkerPoolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu     sync.Mutex
		result AutoReconcileResult
		wg     sync.WaitGroup
	)

	for i := range pending {
		if ctx.Err() != nil {
			o.logger.Warn("run deadline reached, not scheduling remaining items",
				"remaining", len(pending)-i,
			)
			break
		}

		btx := pending[i]
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			detail := o.processOne(ctx, btx)
			mu.Lock()
			result.add(detail)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			result.add(ItemDetail{
				TransactionID: btx.ID,
				Status:        itemFailed,
				Error:         submitErr.Error(),
			})
			mu.Unlock()
		}
	}
	wg.Wait()

	o.logger.Info("auto-reconcile run finished",
		"total", result.Total,
		"matched", result.Matched,
		"partially_matched", result.PartiallyMatched,
		"unmatched", result.Unmatched,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return &result, nil
}

// processOne runs generate -> score -> post-or-unmatch for a single
// transaction. Any error, including a panic, stays local to the item.
func (o *Orchestrator) processOne(ctx context.Context, btx models.BankTransaction) (detail ItemDetail) {
	detail = ItemDetail{TransactionID: btx.ID}
	defer func() {
		if r := recover(); r != nil {
			detail.Status = itemFailed
			detail.Error = fmt.Sprintf("panic: %v", r)
			o.logger.Error("panic while reconciling transaction",
				"transaction_id", btx.ID.String(),
				"panic", r,
			)
		}
	}()

	if o.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.ItemTimeout)
		defer cancel()
	}

	candidates, err := o.generator.Generate(ctx, &btx)
	if err != nil {
		detail.Status = itemFailed
		detail.Error = err.Error()
		return detail
	}

	if len(candidates) == 0 {
		return o.markUnmatched(ctx, btx, matching.MatchScore{Tier: matching.TierNone}, "no candidates found")
	}

	best := candidates[0]
	score := o.scorer.Score(&btx, best)
	detail.Tier = score.Tier
	detail.Confidence = score.Score

	switch score.Tier {
	case matching.TierExact, matching.TierFuzzy, matching.TierPartial:
		if best.Customer == nil {
			return o.markUnmatched(ctx, btx, score, "candidate invoice has no resolvable customer")
		}
		post, err := o.poster.Post(ctx, PostRequest{
			TransactionID: btx.ID,
			CustomerID:    best.Customer.ID,
			InvoiceID:     &best.Invoice.ID,
			Amount:        btx.Amount,
			Tier:          score.Tier,
			Score:         score.Score,
			Actor:         autoActor,
		})
		if err != nil {
			// A ConflictError here means a concurrent attempt won the
			// transaction; it is recorded, not retried.
			detail.Status = itemFailed
			detail.Error = err.Error()
			return detail
		}
		detail.Status = string(post.TransactionStatus)
		if score.Tier == matching.TierFuzzy {
			detail.Reason = "auto-posted below exact threshold, flagged for review"
		}
		return detail
	default:
		reason := fmt.Sprintf("best candidate scored %.2f, below review threshold", score.Score)
		return o.markUnmatched(ctx, btx, score, reason)
	}
}

// markUnmatched transitions a still-PENDING transaction to UNMATCHED and
// records the audit entry, atomically. Rows that lost their PENDING state to
// a concurrent worker are skipped.
func (o *Orchestrator) markUnmatched(ctx context.Context, btx models.BankTransaction, score matching.MatchScore, reason string) ItemDetail {
	detail := ItemDetail{
		TransactionID: btx.ID,
		Tier:          score.Tier,
		Confidence:    score.Score,
		Reason:        reason,
	}

	err := o.store.WithTransaction(ctx, func(tx repository.Store) error {
		locked, err := tx.BankTransactions().GetByIDForUpdate(ctx, btx.ID)
		if err != nil {
			return err
		}
		if !o.machine.CanAuto(locked.Status) {
			detail.Status = itemSkipped
			detail.Reason = fmt.Sprintf("transaction already %s", locked.Status)
			return nil
		}

		now := o.now()
		if err := o.machine.Transition(locked, models.TransactionUnmatched, autoActor, false, now); err != nil {
			return err
		}
		locked.ConfidenceScore = score.Score
		if err := tx.BankTransactions().Update(ctx, locked); err != nil {
			return err
		}

		return tx.Logs().Append(ctx, &models.ReconciliationLog{
			ID:                uuid.New(),
			BankTransactionID: locked.ID,
			Action:            "no_match",
			Tier:              string(score.Tier),
			Score:             score.Score,
			Reason:            reason,
			PerformedBy:       autoActor,
			Details:           unmatchedDetails(btx),
			CreatedAt:         now,
		})
	})
	if err != nil {
		detail.Status = itemFailed
		detail.Error = err.Error()
		return detail
	}
	if detail.Status == "" {
		detail.Status = itemUnmatched
	}
	return detail
}

func unmatchedDetails(btx models.BankTransaction) datatypes.JSON {
	raw, err := json.Marshal(map[string]interface{}{
		"amount":    btx.Amount.String(),
		"reference": btx.Reference,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
