package reconciliation

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/models"
	"bank-reconciliation-engine/internal/repository"
)

// memStore is an in-memory repository.Store for tests. WithTransaction
// serializes whole units of work on txMu, which stands in for the row locks
// the real store takes; the poster performs all validations before its first
// write, so rollback emulation is not needed here.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	txs       map[uuid.UUID]models.BankTransaction
	invoices  map[uuid.UUID]models.Invoice
	customers map[uuid.UUID]models.Customer
	payments  map[uuid.UUID]models.Payment
	logs      []models.ReconciliationLog

	// failRefLookup makes reference lookups fail for transactions whose
	// reference contains the marker, to exercise failure isolation.
	failRefLookup string
}

func newMemStore() *memStore {
	return &memStore{
		txs:       make(map[uuid.UUID]models.BankTransaction),
		invoices:  make(map[uuid.UUID]models.Invoice),
		customers: make(map[uuid.UUID]models.Customer),
		payments:  make(map[uuid.UUID]models.Payment),
	}
}

func (s *memStore) WithTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *memStore) BankTransactions() repository.BankTransactionRepository { return &memTxRepo{s} }
func (s *memStore) Invoices() repository.InvoiceRepository                { return &memInvoiceRepo{s} }
func (s *memStore) Customers() repository.CustomerRepository              { return &memCustomerRepo{s} }
func (s *memStore) Payments() repository.PaymentRepository                { return &memPaymentRepo{s} }
func (s *memStore) Logs() repository.ReconciliationLogRepository          { return &memLogRepo{s} }

func (s *memStore) addTx(tx models.BankTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[tx.ID] = tx
}

func (s *memStore) addInvoice(inv models.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = inv
}

func (s *memStore) addCustomer(c models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *memStore) logActions(bankTxID uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actions []string
	for _, e := range s.logs {
		if e.BankTransactionID == bankTxID {
			actions = append(actions, e.Action)
		}
	}
	return actions
}

type memTxRepo struct{ s *memStore }

func (r *memTxRepo) CreateIfNew(ctx context.Context, tx *models.BankTransaction) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.txs {
		if existing.ExternalTransactionID == tx.ExternalTransactionID {
			return false, nil
		}
	}
	r.s.txs[tx.ID] = *tx
	return true, nil
}

func (r *memTxRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx, ok := r.s.txs[id]
	if !ok {
		return nil, apperrors.NotFound("bank transaction", id.String())
	}
	cp := tx
	return &cp, nil
}

func (r *memTxRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	return r.GetByID(ctx, id)
}

func (r *memTxRepo) ListPending(ctx context.Context, scope repository.ListScope) ([]models.BankTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.BankTransaction
	for _, tx := range r.s.txs {
		if tx.Status != models.TransactionPending {
			continue
		}
		if scope.From != nil && tx.TransactionDate.Before(*scope.From) {
			continue
		}
		if scope.To != nil && !tx.TransactionDate.Before(*scope.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if scope.Limit > 0 && len(out) > scope.Limit {
		out = out[:scope.Limit]
	}
	return out, nil
}

func (r *memTxRepo) List(ctx context.Context, status models.TransactionStatus, cursor string, limit int) ([]models.BankTransaction, string, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.BankTransaction
	for _, tx := range r.s.txs {
		if status != "" && tx.Status != status {
			continue
		}
		if cursor != "" && tx.ID.String() <= cursor {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	hasMore := len(out) > limit
	if hasMore {
		out = out[:limit]
	}
	next := ""
	if hasMore {
		next = out[len(out)-1].ID.String()
	}
	return out, next, hasMore, nil
}

func (r *memTxRepo) Update(ctx context.Context, tx *models.BankTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.txs[tx.ID] = *tx
	return nil
}

type memInvoiceRepo struct{ s *memStore }

func (r *memInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, apperrors.NotFound("invoice", id.String())
	}
	cp := inv
	return &cp, nil
}

func (r *memInvoiceRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *memInvoiceRepo) GetOpenByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	if r.s.failRefLookup != "" && strings.Contains(number, r.s.failRefLookup) {
		return nil, context.DeadlineExceeded
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.InvoiceNumber == number && inv.Open() {
			cp := inv
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("invoice", number)
}

func (r *memInvoiceRepo) FindOpenByBalance(ctx context.Context, amount, tolerance decimal.Decimal, limit int) ([]models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Invoice
	for _, inv := range r.s.invoices {
		if inv.Open() && inv.BalanceAmount.Sub(amount).Abs().LessThanOrEqual(tolerance) {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memInvoiceRepo) FindOpenAboveBalance(ctx context.Context, amount decimal.Decimal, limit int) ([]models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Invoice
	for _, inv := range r.s.invoices {
		if inv.Open() && inv.BalanceAmount.GreaterThan(amount) {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memInvoiceRepo) ListOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Invoice
	for _, inv := range r.s.invoices {
		if inv.CustomerID == customerID && inv.Open() {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out, nil
}

func (r *memInvoiceRepo) Update(ctx context.Context, inv *models.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.invoices[inv.ID] = *inv
	return nil
}

func sortInvoices(invoices []models.Invoice) {
	sort.Slice(invoices, func(i, j int) bool { return invoices[i].ID.String() < invoices[j].ID.String() })
}

type memCustomerRepo struct{ s *memStore }

func (r *memCustomerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, apperrors.NotFound("customer", id.String())
	}
	cp := c
	return &cp, nil
}

func (r *memCustomerRepo) GetByCode(ctx context.Context, code string) (*models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.customers {
		if c.CustomerCode == code {
			cp := c
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("customer", code)
}

func (r *memCustomerRepo) RefreshAggregates(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return apperrors.NotFound("customer", id.String())
	}
	balance := decimal.Zero
	for _, inv := range r.s.invoices {
		if inv.CustomerID == id && inv.Open() {
			balance = balance.Add(inv.BalanceAmount)
		}
	}
	paid := decimal.Zero
	for _, p := range r.s.payments {
		if p.CustomerID == id {
			paid = paid.Add(p.Amount)
		}
	}
	c.CurrentBalance = balance
	c.TotalPaid = paid
	c.UpdatedAt = time.Now()
	r.s.customers[id] = c
	return nil
}

type memPaymentRepo struct{ s *memStore }

func (r *memPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.BankTransactionID != nil {
		for _, existing := range r.s.payments {
			if existing.BankTransactionID != nil &&
				*existing.BankTransactionID == *p.BankTransactionID &&
				existing.Status != models.PaymentRefunded {
				return apperrors.Conflict("payment already posted for bank transaction")
			}
		}
	}
	r.s.payments[p.ID] = *p
	return nil
}

func (r *memPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, apperrors.NotFound("payment", id.String())
	}
	cp := p
	return &cp, nil
}

func (r *memPaymentRepo) ExistsForBankTransaction(ctx context.Context, bankTxID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.BankTransactionID != nil && *p.BankTransactionID == bankTxID && p.Status != models.PaymentRefunded {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPaymentRepo) Update(ctx context.Context, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payments[p.ID] = *p
	return nil
}

type memLogRepo struct{ s *memStore }

func (r *memLogRepo) Append(ctx context.Context, entry *models.ReconciliationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.logs = append(r.s.logs, *entry)
	return nil
}

func (r *memLogRepo) ListByTransaction(ctx context.Context, bankTxID uuid.UUID) ([]models.ReconciliationLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.ReconciliationLog
	for _, e := range r.s.logs {
		if e.BankTransactionID == bankTxID {
			out = append(out, e)
		}
	}
	return out, nil
}
