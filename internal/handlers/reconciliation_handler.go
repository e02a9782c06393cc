package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/repository"
	"bank-reconciliation-engine/internal/services/ingestion"
	"bank-reconciliation-engine/internal/services/reconciliation"
)

type ReconciliationHandler struct {
	normalizer   *ingestion.Normalizer
	orchestrator *reconciliation.Orchestrator
	manual       *reconciliation.ManualOverride
	poster       *reconciliation.PaymentPoster
	store        repository.Store
	logger       *slog.Logger
}

func NewReconciliationHandler(
	normalizer *ingestion.Normalizer,
	orchestrator *reconciliation.Orchestrator,
	manual *reconciliation.ManualOverride,
	poster *reconciliation.PaymentPoster,
	store repository.Store,
	logger *slog.Logger,
) *ReconciliationHandler {
	return &ReconciliationHandler{
		normalizer:   normalizer,
		orchestrator: orchestrator,
		manual:       manual,
		poster:       poster,
		store:        store,
		logger:       logger,
	}
}

// Ingest accepts a normalized statement batch from the upload collaborator.
func (h *ReconciliationHandler) Ingest(c *gin.Context) {
	var payload struct {
		Transactions []ingestion.Row `json:"transactions" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.normalizer.Ingest(c.Request.Context(), payload.Transactions)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AutoMatch runs the batch reconciliation over pending transactions.
func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	var payload struct {
		From  *time.Time `json:"from"`
		To    *time.Time `json:"to"`
		Limit int        `json:"limit"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
	}

	result, err := h.orchestrator.Run(c.Request.Context(), repository.ListScope{
		From:  payload.From,
		To:    payload.To,
		Limit: payload.Limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ReconciliationHandler) ListTransactions(c *gin.Context) {
	status := c.Query("status")
	cursor := c.Query("cursor")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	txs, nextCursor, hasMore, err := h.store.BankTransactions().List(
		c.Request.Context(), models.TransactionStatus(status), cursor, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": txs,
		"next_cursor":  nextCursor,
		"has_more":     hasMore,
	})
}

func (h *ReconciliationHandler) GetTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	tx, err := h.store.BankTransactions().GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

func (h *ReconciliationHandler) GetTransactionLogs(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	entries, err := h.store.Logs().ListByTransaction(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// ManualMatch applies an operator-supplied match, bypassing scoring.
func (h *ReconciliationHandler) ManualMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		CustomerID string          `json:"customer_id" binding:"required"`
		InvoiceID  string          `json:"invoice_id"`
		Amount     decimal.Decimal `json:"amount" binding:"required"`
		Notes      string          `json:"notes"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	customerID, err := uuid.Parse(payload.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer ID"})
		return
	}

	var invoiceID *uuid.UUID
	if payload.InvoiceID != "" {
		parsed, err := uuid.Parse(payload.InvoiceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice ID"})
			return
		}
		invoiceID = &parsed
	}

	result, err := h.manual.Match(c.Request.Context(), reconciliation.ManualMatchRequest{
		TransactionID: id,
		CustomerID:    customerID,
		InvoiceID:     invoiceID,
		Amount:        payload.Amount,
		Notes:         payload.Notes,
		Actor:         operatorFrom(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction manually matched", "result": result})
}

// Reject marks a transaction rejected with a mandatory reason.
func (h *ReconciliationHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	if err := h.manual.Reject(c.Request.Context(), id, payload.Reason, operatorFrom(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "transaction rejected"})
}

// RefundPayment reverses a posted payment.
func (h *ReconciliationHandler) RefundPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	var payload struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	result, err := h.poster.Refund(c.Request.Context(), id, operatorFrom(c), payload.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "payment refunded", "result": result})
}

func operatorFrom(c *gin.Context) string {
	if op := c.GetHeader("X-Operator"); op != "" {
		return op
	}
	return "operator"
}

func writeError(c *gin.Context, err error) {
	switch {
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
