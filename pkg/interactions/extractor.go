// Package interactions derives dated pairwise customer events from transfers,
// check-ins and membership rosters.
package interactions

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Options holds the extractor tunables.
type Options struct {
	// DaysBack limits transfers and check-ins to the last N days. Zero means full history.
	DaysBack      int
	Now           func() time.Time
	CheckinWindow time.Duration
	MemberIDGap   int64
}

// DefaultOptions returns the standard tunables over the full history.
func DefaultOptions() Options {
	return Options{
		Now:           time.Now,
		CheckinWindow: 30 * time.Minute,
		MemberIDGap:   3,
	}
}

// Input is everything the extractor reads. A nil Rosters means the membership
// roster was not supplied and family_membership is skipped.
type Input struct {
	Transfers []models.Transfer
	CheckIns  []models.CheckIn
	Customers []models.Customer
	Rosters   []models.Roster
}

type Extractor struct {
	opts   Options
	logger ectologger.Logger
}

func NewExtractor(opts Options, logger ectologger.Logger) *Extractor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Extractor{opts: opts, logger: logger}
}

// collector accumulates candidate rows and counts the ones it rejects.
type collector struct {
	rows    []models.Interaction
	skipped int
}

func (c *collector) add(date time.Time, typ models.InteractionType, a, b int64, metadata any) {
	pair := models.NewPair(a, b)
	if pair.IsSelf() {
		c.skipped++
		return
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		c.skipped++
		return
	}
	day := models.DateOf(date)
	c.rows = append(c.rows, models.Interaction{
		ID:              InteractionID(pair, day, typ),
		InteractionDate: day,
		InteractionType: typ,
		CustomerID1:     pair.CustomerID1,
		CustomerID2:     pair.CustomerID2,
		Metadata:        raw,
	})
}

// Extract runs every extraction and returns the rows sorted by date, type and pair.
func (e *Extractor) Extract(ctx context.Context, in Input) ([]models.Interaction, models.StageStats) {
	ctx, span := tracing.StartSpan(ctx, "interactions.Extractor.Extract")
	defer span.End()

	stats := models.StageStats{Stage: "interactions.extract", Breakdown: make(map[string]int)}

	transfers, checkins := e.window(in.Transfers, in.CheckIns)
	stats.Processed = len(transfers) + len(checkins)

	c := &collector{}
	extractSharedPass(c, transfers)
	extractSamePurchaseGroup(c, transfers)
	extractSameDayCheckin(c, checkins, e.opts.CheckinWindow)
	if in.Rosters == nil {
		e.logger.WithContext(ctx).Warn("Skipping family_membership interactions: no membership roster")
		stats.Notes = append(stats.Notes, "family_membership skipped: no membership roster")
	} else {
		for _, r := range in.Rosters {
			stats.Processed += len(r.Members)
		}
		extractFamilyMembership(c, in.Rosters, e.opts.MemberIDGap)
	}
	extractFrequentGuest(c, checkins, in.Customers)

	rows, duplicates := dedupe(c.rows)
	stats.Produced = len(rows)
	stats.Skipped = c.skipped + duplicates
	for _, row := range rows {
		stats.Breakdown[string(row.InteractionType)]++
	}

	e.logger.WithContext(ctx).WithFields(stats.Fields()).Info("Extracted customer interactions")
	return rows, stats
}

func (e *Extractor) window(transfers []models.Transfer, checkins []models.CheckIn) ([]models.Transfer, []models.CheckIn) {
	if e.opts.DaysBack <= 0 {
		return transfers, checkins
	}
	cutoff := e.opts.Now().AddDate(0, 0, -e.opts.DaysBack)

	keptTransfers := make([]models.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if !t.CheckedInAt.Before(cutoff) {
			keptTransfers = append(keptTransfers, t)
		}
	}
	keptCheckins := make([]models.CheckIn, 0, len(checkins))
	for _, c := range checkins {
		if !c.CheckedInAt.Before(cutoff) {
			keptCheckins = append(keptCheckins, c)
		}
	}
	return keptTransfers, keptCheckins
}

// dedupe keeps one row per id, taking the content of the last write, then sorts.
func dedupe(rows []models.Interaction) ([]models.Interaction, int) {
	index := make(map[string]int, len(rows))
	out := make([]models.Interaction, 0, len(rows))
	for _, row := range rows {
		if i, ok := index[row.ID]; ok {
			out[i] = row
			continue
		}
		index[row.ID] = len(out)
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.InteractionDate.Equal(b.InteractionDate) {
			return a.InteractionDate.Before(b.InteractionDate)
		}
		if a.InteractionType != b.InteractionType {
			return a.InteractionType < b.InteractionType
		}
		return a.Pair().Less(b.Pair())
	})
	return out, len(rows) - len(out)
}

// InteractionID is the first 16 hex characters of md5("c1-c2-date-type").
func InteractionID(pair models.Pair, date time.Time, typ models.InteractionType) string {
	key := fmt.Sprintf("%d-%d-%s-%s", pair.CustomerID1, pair.CustomerID2, date.Format(models.DateLayout), typ)
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}
