package reconciliation

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/config"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/services/matching"
)

var testTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		ReferenceWeight:   0.45,
		AmountWeight:      0.35,
		DateWeight:        0.10,
		NameWeight:        0.10,
		ExactThreshold:    0.90,
		ReviewThreshold:   0.60,
		NameSimilarityMin: 0.55,
		AmountTolerance:   "0.01",
		MaxCandidates:     5,
		DateWindowDays:    90,
	}
}

func testBatchConfig() config.BatchConfig {
	return config.BatchConfig{
		WorkerPoolSize: 4,
		ItemTimeout:    5 * time.Second,
		RunDeadline:    time.Minute,
	}
}

func money(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedCustomer(s *memStore, name, code string) models.Customer {
	c := models.Customer{
		ID:           uuid.New(),
		Name:         name,
		CustomerCode: code,
		CreatedAt:    testTime,
	}
	s.addCustomer(c)
	return c
}

func seedInvoice(s *memStore, customer models.Customer, number, total string, dueDate time.Time) models.Invoice {
	amount := money(total)
	inv := models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		CustomerID:    customer.ID,
		TotalAmount:   amount,
		PaidAmount:    decimal.Zero,
		BalanceAmount: amount,
		Status:        models.InvoiceSent,
		DueDate:       dueDate,
		CreatedAt:     testTime,
	}
	s.addInvoice(inv)
	return inv
}

func seedTransaction(s *memStore, reference, amount string, date time.Time) models.BankTransaction {
	tx := models.BankTransaction{
		ID:                    uuid.New(),
		ExternalTransactionID: "ext-" + uuid.NewString(),
		TransactionDate:       date,
		Amount:                money(amount),
		Currency:              "USD",
		Reference:             reference,
		Status:                models.TransactionPending,
		CreatedAt:             testTime,
	}
	s.addTx(tx)
	return tx
}

func newTestPoster(s *memStore) *PaymentPoster {
	p := NewPaymentPoster(s, NewStateMachine(), testLogger())
	p.now = func() time.Time { return testTime }
	return p
}

func newTestOrchestrator(s *memStore) *Orchestrator {
	cfg := testMatchingConfig()
	scorer := matching.NewScorer(cfg)
	generator := matching.NewGenerator(s.Invoices(), s.Customers(), scorer, cfg)
	machine := NewStateMachine()
	poster := newTestPoster(s)
	o := NewOrchestrator(s, generator, scorer, poster, machine, testBatchConfig(), testLogger())
	o.now = func() time.Time { return testTime }
	return o
}
