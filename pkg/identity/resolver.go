// Package identity resolves the purchaser named on a transfer to a customer.
package identity

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
)

const passTypeKeywords = 3

// Config holds the resolver tunables.
type Config struct {
	LookbackDays   int
	LookaheadDays  int
	FuzzyThreshold int
}

// DefaultConfig returns the standard resolver tunables.
func DefaultConfig() Config {
	return Config{
		LookbackDays:   7,
		LookaheadDays:  1,
		FuzzyThreshold: 80,
	}
}

// Resolver tries transaction linking then name matching.
type Resolver struct {
	cfg          Config
	scorer       *matching.Scorer
	customers    []models.Customer
	transactions []models.Transaction
}

// NewResolver creates a resolver over a customer roster and an optional
// transaction log. Inputs are copied and put into their scan order.
func NewResolver(cfg Config, customers []models.Customer, transactions []models.Transaction) *Resolver {
	sortedCustomers := append([]models.Customer(nil), customers...)
	sort.SliceStable(sortedCustomers, func(i, j int) bool {
		return models.CustomerLess(sortedCustomers[i], sortedCustomers[j])
	})

	// most recent first, lowest id on equal dates
	sortedTxns := append([]models.Transaction(nil), transactions...)
	sort.SliceStable(sortedTxns, func(i, j int) bool {
		if !sortedTxns[i].Date.Equal(sortedTxns[j].Date) {
			return sortedTxns[i].Date.After(sortedTxns[j].Date)
		}
		return sortedTxns[i].ID < sortedTxns[j].ID
	})

	return &Resolver{
		cfg:          cfg,
		scorer:       matching.NewScorer(),
		customers:    sortedCustomers,
		transactions: sortedTxns,
	}
}

// Resolve returns the first successful strategy's resolution, or NoMatch.
func (r *Resolver) Resolve(t models.Transfer) models.Resolution {
	if res, ok := r.LinkTransaction(t.PassType, t.CheckedInAt); ok {
		return res
	}
	if res, ok := r.MatchName(t.PurchaserName); ok {
		return res
	}
	return models.NoMatch()
}

// ResolveAll resolves every transfer without ever lowering the confidence it
// already carries.
func (r *Resolver) ResolveAll(transfers []models.Transfer) ([]models.Transfer, models.StageStats) {
	stats := models.StageStats{Stage: "transfers.resolve", Processed: len(transfers)}
	out := make([]models.Transfer, 0, len(transfers))

	for _, t := range transfers {
		resolved := t.WithResolution(KeepBest(t.Resolution(), r.Resolve(t)))
		if resolved.IsResolved() {
			stats.Produced++
		} else {
			stats.Skipped++
		}
		out = append(out, resolved)
	}
	return out, stats
}

// LinkTransaction finds the most recent purchase of the pass type around the
// visit. It fails when no purchase matches or the best one has no customer.
func (r *Resolver) LinkTransaction(passType string, checkedInAt time.Time) (models.Resolution, bool) {
	keywords := normalizers.FirstWords(passType, passTypeKeywords)
	if len(keywords) == 0 || len(r.transactions) == 0 {
		return models.Resolution{}, false
	}

	start := checkedInAt.AddDate(0, 0, -r.cfg.LookbackDays)
	end := checkedInAt.AddDate(0, 0, r.cfg.LookaheadDays)

	for _, txn := range r.transactions {
		if txn.Date.Before(start) || txn.Date.After(end) {
			continue
		}
		if !containsAny(strings.ToLower(txn.Description), keywords) {
			continue
		}

		// transactions are ordered most recent first so this is the best candidate
		if txn.CustomerID == nil {
			return models.Resolution{}, false
		}
		id := *txn.CustomerID
		return models.Resolution{
			CustomerID: &id,
			Method:     models.MatchMethodTransactionLink,
			Confidence: r.scorer.DayLagConfidence(daysBetween(txn.Date, checkedInAt)),
		}, true
	}

	return models.Resolution{}, false
}

// MatchName tries an exact first/last match, then the best fuzzy match above the threshold.
func (r *Resolver) MatchName(purchaserName string) (models.Resolution, bool) {
	name := strings.TrimSpace(purchaserName)
	if name == "" || len(r.customers) == 0 {
		return models.Resolution{}, false
	}

	if first, last, ok := normalizers.SplitName(name); ok {
		for _, c := range r.customers {
			if r.scorer.ExactMatch(c.FirstName, first, false) && r.scorer.ExactMatch(c.LastName, last, false) {
				id := c.ID
				return models.Resolution{CustomerID: &id, Method: models.MatchMethodNameMatch, Confidence: 100}, true
			}
		}
	}

	lowered := strings.ToLower(name)
	bestScore := 0
	var bestID int64
	for _, c := range r.customers {
		score := r.scorer.Ratio(lowered, strings.ToLower(c.FullName()))
		if score > bestScore {
			bestScore = score
			bestID = c.ID
		}
	}

	if bestScore == 0 || bestScore < r.cfg.FuzzyThreshold {
		return models.Resolution{}, false
	}
	return models.Resolution{CustomerID: &bestID, Method: models.MatchMethodNameMatch, Confidence: bestScore}, true
}

// KeepBest returns next unless prior carries a strictly higher confidence.
func KeepBest(prior, next models.Resolution) models.Resolution {
	if prior.Confidence > next.Confidence {
		return prior
	}
	return next
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(models.DateOf(to).Sub(models.DateOf(from)).Hours() / 24))
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
