package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"bank-reconciliation-engine/internal/config"
	handler "bank-reconciliation-engine/internal/handlers"
	"bank-reconciliation-engine/internal/repository"
	"bank-reconciliation-engine/internal/services/ingestion"
	"bank-reconciliation-engine/internal/services/matching"
	"bank-reconciliation-engine/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config, logger *slog.Logger) {
	store := repository.NewStore(db)

	scorer := matching.NewScorer(cfg.Matching)
	generator := matching.NewGenerator(store.Invoices(), store.Customers(), scorer, cfg.Matching)
	machine := reconciliation.NewStateMachine()
	poster := reconciliation.NewPaymentPoster(store, machine, logger)
	orchestrator := reconciliation.NewOrchestrator(store, generator, scorer, poster, machine, cfg.Batch, logger)
	manual := reconciliation.NewManualOverride(store, poster, machine, logger)
	normalizer := ingestion.NewNormalizer(store, logger)

	reconHandler := handler.NewReconciliationHandler(normalizer, orchestrator, manual, poster, store, logger)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Reconciliation routes
	recon := api.Group("/reconciliation")
	recon.POST("/auto-match", reconHandler.AutoMatch)

	// Transaction-level routes
	tx := api.Group("/transactions")
	tx.POST("/ingest", reconHandler.Ingest)
	tx.GET("", reconHandler.ListTransactions)
	tx.GET("/:id", reconHandler.GetTransaction)
	tx.GET("/:id/logs", reconHandler.GetTransactionLogs)
	tx.POST("/:id/match", reconHandler.ManualMatch)
	tx.POST("/:id/reject", reconHandler.Reject)

	// Payment routes
	payments := api.Group("/payments")
	payments.POST("/:id/refund", reconHandler.RefundPayment)
}
