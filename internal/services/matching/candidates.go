package matching

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bank-reconciliation-engine/internal/apperrors"
	"bank-reconciliation-engine/internal/config"
	"bank-reconciliation-engine/internal/models"
)

// Candidate is a plausible (customer, invoice) target for a transaction.
// Invoice may be nil when only the customer could be identified; such
// candidates are suggestions for manual review, never auto-accepted.
type Candidate struct {
	Customer *models.Customer
	Invoice  *models.Invoice
	// AmountDelta is invoice balance minus transaction amount; positive
	// means the transaction underpays the invoice.
	AmountDelta    decimal.Decimal
	ReferenceHit   bool
	AmountExact    bool
	Partial        bool
	NameSimilarity float64
}

// InvoiceFinder is the slice of invoice lookups candidate generation needs.
type InvoiceFinder interface {
	GetOpenByNumber(ctx context.Context, number string) (*models.Invoice, error)
	FindOpenByBalance(ctx context.Context, amount, tolerance decimal.Decimal, limit int) ([]models.Invoice, error)
	FindOpenAboveBalance(ctx context.Context, amount decimal.Decimal, limit int) ([]models.Invoice, error)
	ListOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Invoice, error)
}

type CustomerFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetByCode(ctx context.Context, code string) (*models.Customer, error)
}

// Generator produces a ranked, capped candidate list for one pending
// transaction: reference hits first, then amount-based lookups, with name
// similarity folded in for ranking.
type Generator struct {
	invoices  InvoiceFinder
	customers CustomerFinder
	scorer    *Scorer
	cfg       config.MatchingConfig
	tolerance decimal.Decimal
}

func NewGenerator(invoices InvoiceFinder, customers CustomerFinder, scorer *Scorer, cfg config.MatchingConfig) *Generator {
	tolerance, err := decimal.NewFromString(cfg.AmountTolerance)
	if err != nil {
		tolerance = decimal.NewFromFloat(0.01)
	}
	return &Generator{
		invoices:  invoices,
		customers: customers,
		scorer:    scorer,
		cfg:       cfg,
		tolerance: tolerance,
	}
}

// Generate returns candidates most promising first, capped at the configured
// maximum. An empty slice means the scorer will yield tier NONE downstream.
func (g *Generator) Generate(ctx context.Context, tx *models.BankTransaction) ([]Candidate, error) {
	var candidates []Candidate
	seenInvoices := make(map[uuid.UUID]bool)
	seenCustomers := make(map[uuid.UUID]bool)

	add := func(inv *models.Invoice, cust *models.Customer, refHit bool) error {
		if inv != nil {
			if seenInvoices[inv.ID] {
				return nil
			}
			seenInvoices[inv.ID] = true
			if cust == nil {
				var err error
				cust, err = g.customers.GetByID(ctx, inv.CustomerID)
				if err != nil && !apperrors.IsNotFound(err) {
					return err
				}
			}
		} else {
			if cust == nil || seenCustomers[cust.ID] {
				return nil
			}
		}
		if cust != nil {
			seenCustomers[cust.ID] = true
		}

		c := Candidate{
			Customer:     cust,
			Invoice:      inv,
			ReferenceHit: refHit,
		}
		if inv != nil {
			c.AmountDelta = inv.BalanceAmount.Sub(tx.Amount)
			c.AmountExact = inv.BalanceAmount.Sub(tx.Amount).Abs().LessThanOrEqual(g.tolerance)
			c.Partial = !c.AmountExact && tx.Amount.LessThan(inv.BalanceAmount)
		}
		if cust != nil {
			c.NameSimilarity = NameSimilarity(tx.Reference, cust.Name)
		}
		candidates = append(candidates, c)
		return nil
	}

	// 1. Reference-based lookup: any token that resolves to an open invoice
	// number or a customer code carries a strong prior.
	for _, token := range referenceTokens(tx.Reference) {
		inv, err := g.invoices.GetOpenByNumber(ctx, token)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		if inv != nil {
			if err := add(inv, nil, true); err != nil {
				return nil, err
			}
		}

		cust, err := g.customers.GetByCode(ctx, token)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		if cust == nil {
			continue
		}
		open, err := g.invoices.ListOpenByCustomer(ctx, cust.ID)
		if err != nil {
			return nil, err
		}
		for i := range open {
			if !tx.Amount.GreaterThan(open[i].BalanceAmount.Add(g.tolerance)) {
				if err := add(&open[i], cust, true); err != nil {
					return nil, err
				}
			}
		}
		if err := add(nil, cust, true); err != nil {
			return nil, err
		}
	}

	// 2. Amount-based lookup: open invoices whose balance equals the amount
	// within tolerance, then larger balances as partial-payment candidates.
	exact, err := g.invoices.FindOpenByBalance(ctx, tx.Amount, g.tolerance, g.cfg.MaxCandidates)
	if err != nil {
		return nil, err
	}
	for i := range exact {
		if err := add(&exact[i], nil, false); err != nil {
			return nil, err
		}
	}

	above, err := g.invoices.FindOpenAboveBalance(ctx, tx.Amount, g.cfg.MaxCandidates)
	if err != nil {
		return nil, err
	}
	for i := range above {
		if err := add(&above[i], nil, false); err != nil {
			return nil, err
		}
	}

	// 3. Rank and cap; name similarity only reorders, it never generates a
	// candidate on its own.
	candidates = g.scorer.Rank(tx, candidates)
	if len(candidates) > g.cfg.MaxCandidates {
		candidates = candidates[:g.cfg.MaxCandidates]
	}
	return candidates, nil
}

// referenceTokens splits a statement reference into lookup tokens, keeping
// dashes so invoice numbers like INV-2024-0031 survive intact.
func referenceTokens(reference string) []string {
	fields := strings.FieldsFunc(strings.ToUpper(reference), func(r rune) bool {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return false
		}
		return true
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len(f) >= 3 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
