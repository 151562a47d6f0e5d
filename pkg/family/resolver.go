// Package family fuses relation records and membership rosters into parent to child links.
package family

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Input is everything the resolver reads. Nil Relations or Rosters mean the
// source was not supplied and its candidates are skipped.
type Input struct {
	Customers []models.Customer
	Relations []models.Relation
	Rosters   []models.Roster
}

type Resolver struct {
	now    func() time.Time
	logger ectologger.Logger
}

// NewResolver creates a resolver. Ages are computed against now on every call.
func NewResolver(now func() time.Time, logger ectologger.Logger) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now, logger: logger}
}

// Resolve collects candidates from every available source and reduces them.
func (r *Resolver) Resolve(ctx context.Context, in Input) ([]models.FamilyLink, models.StageStats) {
	ctx, span := tracing.StartSpan(ctx, "family.Resolver.Resolve")
	defer span.End()

	stats := models.StageStats{Stage: "family.resolve", Breakdown: make(map[string]int)}
	now := r.now()
	customers := indexCustomers(in.Customers)

	var candidates []Candidate
	if in.Relations == nil {
		r.logger.WithContext(ctx).Warn("Skipping relation records: source not supplied")
		stats.Notes = append(stats.Notes, "relations skipped: source not supplied")
	} else {
		stats.Processed += len(in.Relations)
		candidates = append(candidates, FromRelations(in.Relations)...)
	}

	if in.Rosters == nil {
		r.logger.WithContext(ctx).Warn("Skipping membership links: no membership roster")
		stats.Notes = append(stats.Notes, "membership links skipped: no membership roster")
	} else {
		stats.Processed += len(in.Rosters)
		candidates = append(candidates, FromSharedMemberships(in.Rosters, customers, now)...)
		candidates = append(candidates, FromYouthMemberships(in.Rosters, in.Customers, customers, now)...)
	}

	for _, c := range candidates {
		stats.Breakdown[string(c.Kind)]++
	}
	links := Reduce(candidates)
	stats.Produced = len(links)
	stats.Skipped = len(candidates) - len(links)

	r.logger.WithContext(ctx).WithFields(stats.Fields()).Info("Resolved family relationships")
	return links, stats
}

// FromRelations turns explicit CHI and PRE records into high confidence candidates.
// Other codes are ignored.
func FromRelations(relations []models.Relation) []Candidate {
	var out []Candidate
	for _, rel := range relations {
		var (
			c  Candidate
			ok bool
		)
		switch rel.Code {
		case models.RelationChild:
			c, ok = newCandidate(SourceRelations, rel.CustomerID, rel.RelatedCustomerID, models.ConfidenceHigh, "relations_api_CHI")
		case models.RelationParent:
			c, ok = newCandidate(SourceRelations, rel.RelatedCustomerID, rel.CustomerID, models.ConfidenceHigh, "relations_api_PRE")
		}
		if ok {
			out = append(out, c)
		}
	}
	return out
}

// FromSharedMemberships links every minor on a multi-occupant membership to the
// first adult in occupant order. Co-parent households are not distinguished.
func FromSharedMemberships(rosters []models.Roster, customers map[int64]models.Customer, now time.Time) []Candidate {
	var out []Candidate
	for _, roster := range sortedRosters(rosters) {
		occupants := roster.Occupants()
		if len(occupants) <= 1 {
			continue
		}

		var adults, minors []int64
		for _, id := range occupants {
			cust, ok := customers[id]
			if !ok {
				continue
			}
			switch {
			case cust.IsAdult(now):
				adults = append(adults, id)
			case cust.IsMinor(now):
				minors = append(minors, id)
			}
		}
		if len(adults) == 0 || len(minors) == 0 {
			continue
		}

		source := fmt.Sprintf("shared_membership_%d", roster.Membership.ID)
		for _, child := range minors {
			if c, ok := newCandidate(SourceSharedMembership, adults[0], child, models.ConfidenceMedium, source); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// FromYouthMemberships links a minor who owns a youth plan to the adult whose
// email is on file as the billing email for that plan.
func FromYouthMemberships(rosters []models.Roster, all []models.Customer, customers map[int64]models.Customer, now time.Time) []Candidate {
	sorted := append([]models.Customer(nil), all...)
	sort.SliceStable(sorted, func(i, j int) bool { return models.CustomerLess(sorted[i], sorted[j]) })

	var out []Candidate
	for _, r := range sortedRosters(rosters) {
		m := r.Membership
		if !m.IsYouth() || m.OwnerID == 0 || m.OwnerEmail == "" {
			continue
		}
		owner, ok := customers[m.OwnerID]
		if !ok || !owner.IsMinor(now) {
			continue
		}
		for _, cust := range sorted {
			if cust.ID == m.OwnerID || cust.Email != m.OwnerEmail || !cust.IsAdult(now) {
				continue
			}
			if c, ok := newCandidate(SourceYouthMembership, cust.ID, m.OwnerID, models.ConfidenceMedium, fmt.Sprintf("youth_membership_email_%d", m.ID)); ok {
				out = append(out, c)
			}
			break
		}
	}
	return out
}

func indexCustomers(customers []models.Customer) map[int64]models.Customer {
	index := make(map[int64]models.Customer, len(customers))
	for _, c := range customers {
		index[c.ID] = c
	}
	return index
}

func sortedRosters(rosters []models.Roster) []models.Roster {
	out := append([]models.Roster(nil), rosters...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Membership.ID < out[j].Membership.ID })
	return out
}
