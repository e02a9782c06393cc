// Package matching produces (customer, invoice) candidates for a pending
// bank transaction and scores them into discrete match tiers.
package matching

import (
	"math"
	"sort"
	"strings"
	"time"

	"bank-reconciliation-engine/internal/config"
	"bank-reconciliation-engine/internal/models"
)

// Tier is the discrete match category derived from the confidence score.
type Tier string

const (
	TierExact   Tier = "EXACT"
	TierFuzzy   Tier = "FUZZY"
	TierPartial Tier = "PARTIAL"
	TierNone    Tier = "NONE"
	TierManual  Tier = "MANUAL"
)

// MatchScore is the scorer's verdict for one candidate.
type MatchScore struct {
	Score float64
	Tier  Tier
}

// Scorer combines weighted evidence into a 0..1 confidence score. Weights
// and thresholds come from configuration; see config.MatchingConfig.
type Scorer struct {
	cfg config.MatchingConfig
}

func NewScorer(cfg config.MatchingConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score evaluates one candidate against its transaction.
//
// Evidence: an exact reference hit and an exact amount-to-balance match carry
// strong weight; date proximity and payer-name similarity carry small weight.
// A transaction amount strictly below the invoice balance can never be EXACT;
// with reference or name support it becomes PARTIAL, posted as a partial
// payment.
func (s *Scorer) Score(tx *models.BankTransaction, c Candidate) MatchScore {
	score := 0.0

	if c.ReferenceHit {
		score += s.cfg.ReferenceWeight
	}
	if c.AmountExact {
		score += s.cfg.AmountWeight
	}
	if c.Invoice != nil {
		score += s.cfg.DateWeight * dateProximity(tx.TransactionDate, c.Invoice.DueDate, s.cfg.DateWindowDays)
	}
	if c.NameSimilarity >= s.cfg.NameSimilarityMin {
		score += s.cfg.NameWeight * c.NameSimilarity
	}
	score = math.Min(score, 1.0)

	return MatchScore{Score: score, Tier: s.tierFor(score, c)}
}

func (s *Scorer) tierFor(score float64, c Candidate) Tier {
	// A candidate without a concrete invoice is never auto-accepted; it only
	// ranks suggestions for manual review.
	if c.Invoice == nil {
		return TierNone
	}

	nameSupport := c.NameSimilarity >= s.cfg.NameSimilarityMin
	if c.Partial {
		if c.ReferenceHit || nameSupport {
			return TierPartial
		}
		return TierNone
	}

	switch {
	case score >= s.cfg.ExactThreshold:
		return TierExact
	case score >= s.cfg.ReviewThreshold:
		return TierFuzzy
	default:
		return TierNone
	}
}

// Rank orders candidates most promising first. Ties on score break toward
// (a) the invoice with the due date nearest the transaction date, (b) the
// smallest outstanding balance, (c) the lexicographically smallest invoice
// id, so repeated runs are deterministic.
func (s *Scorer) Rank(tx *models.BankTransaction, candidates []Candidate) []Candidate {
	type ranked struct {
		c     Candidate
		score float64
	}
	rs := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		rs = append(rs, ranked{c: c, score: s.Score(tx, c).Score})
	}

	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.score != b.score {
			return a.score > b.score
		}
		ai, bi := a.c.Invoice, b.c.Invoice
		if ai == nil || bi == nil {
			return bi == nil && ai != nil
		}
		da := absDays(tx.TransactionDate, ai.DueDate)
		db := absDays(tx.TransactionDate, bi.DueDate)
		if da != db {
			return da < db
		}
		if !ai.BalanceAmount.Equal(bi.BalanceAmount) {
			return ai.BalanceAmount.LessThan(bi.BalanceAmount)
		}
		return strings.Compare(ai.ID.String(), bi.ID.String()) < 0
	})

	out := make([]Candidate, len(rs))
	for i, r := range rs {
		out[i] = r.c
	}
	return out
}

// dateProximity maps the distance between transaction date and due date onto
// 0..1, flat steps rather than a curve: statements routinely trail the due
// date by a few days without saying anything about the match.
func dateProximity(txDate, dueDate time.Time, windowDays int) float64 {
	days := math.Abs(txDate.Sub(dueDate).Hours() / 24)
	if windowDays > 0 && days > float64(windowDays) {
		return 0
	}

	switch {
	case days <= 3:
		return 1.0
	case days <= 7:
		return 0.8
	case days <= 15:
		return 0.6
	case days <= 30:
		return 0.4
	default:
		return 0.2
	}
}

func absDays(a, b time.Time) float64 {
	return math.Abs(a.Sub(b).Hours() / 24)
}
