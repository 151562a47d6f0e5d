// Package flags evaluates declarative flag rules and reconciles the current
// flag state with the eligible set, recording every transition.
package flags

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/oklog/ulid/v2"
)

// Store persists one transition. The history append and the current-state
// upsert or delete must commit together.
type Store interface {
	ApplyFlagChange(ctx context.Context, entry models.FlagHistoryEntry) error
}

// Publisher announces a transition downstream.
type Publisher interface {
	PublishFlagChange(ctx context.Context, rule models.FlagRule, entry models.FlagHistoryEntry) error
}

type Options struct {
	Now func() time.Time
	// DryRun computes the diff without writing or publishing.
	DryRun bool
}

// RuleResult is the outcome of one rule.
type RuleResult struct {
	FlagName string  `json:"flag_name"`
	Skipped  string  `json:"skipped,omitempty"`
	Eligible []int64 `json:"eligible"`
	ToSet    []int64 `json:"to_set"`
	ToClear  []int64 `json:"to_clear"`
}

type Result struct {
	Rules   []RuleResult              `json:"rules"`
	Applied []models.FlagHistoryEntry `json:"applied"`
}

type Engine struct {
	rules     []models.FlagRule
	store     Store
	publisher Publisher
	opts      Options
	logger    ectologger.Logger
}

// NewEngine keeps only the enabled rules. publisher may be nil.
func NewEngine(rules []models.FlagRule, store Store, publisher Publisher, opts Options, logger ectologger.Logger) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	enabled := make([]models.FlagRule, 0, len(rules))
	for _, r := range rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return &Engine{rules: enabled, store: store, publisher: publisher, opts: opts, logger: logger}
}

// Evaluate returns the full eligible set for rule, sorted by customer id. When a
// criterion needs a source that is absent, the rule is not evaluated and the
// returned reason is non-empty.
func Evaluate(rule models.FlagRule, in Input, now time.Time) ([]int64, string, error) {
	criteria, err := buildCriteria(rule, now)
	if err != nil {
		return nil, "", err
	}
	for _, c := range criteria {
		switch {
		case c.requires == "messages" && in.Messages == nil,
			c.requires == "memberships" && in.Memberships == nil:
			return nil, fmt.Sprintf("%s skipped: %s requires %s", rule.FlagName, c.name, c.requires), nil
		}
	}

	eligible := make(idSet, len(in.Customers))
	for _, cust := range in.Customers {
		eligible[cust.ID] = struct{}{}
	}
	for _, c := range criteria {
		eligible = c.apply(in, eligible)
	}
	return sortedIDs(eligible), "", nil
}

// Diff compares the eligible set with the customers currently holding flagName.
// Sets come first, then clears, each sorted by customer id.
func Diff(flagName string, eligible []int64, current []models.CustomerFlag, ts time.Time) []models.FlagChange {
	want := make(idSet, len(eligible))
	for _, id := range eligible {
		want[id] = struct{}{}
	}
	have := make(idSet)
	for _, f := range current {
		if f.FlagName == flagName {
			have[f.CustomerID] = struct{}{}
		}
	}

	var changes []models.FlagChange
	for _, id := range sortedIDs(want.minus(have)) {
		changes = append(changes, models.FlagChange{CustomerID: id, FlagName: flagName, Action: models.FlagActionSet, Timestamp: ts})
	}
	for _, id := range sortedIDs(have.minus(want)) {
		changes = append(changes, models.FlagChange{CustomerID: id, FlagName: flagName, Action: models.FlagActionClear, Timestamp: ts})
	}
	return changes
}

// Run evaluates every enabled rule, then applies and publishes the changes one
// at a time. A store failure stops the run; changes already applied stay applied
// and a rerun computes the remaining diff.
func (e *Engine) Run(ctx context.Context, in Input) (Result, models.StageStats, error) {
	ctx, span := tracing.StartSpan(ctx, "flags.Engine.Run")
	defer span.End()

	stats := models.StageStats{Stage: "flags.evaluate", Breakdown: make(map[string]int)}
	result := Result{}
	now := e.opts.Now()

	for _, rule := range e.rules {
		stats.Processed += len(in.Customers)

		eligible, skipped, err := Evaluate(rule, in, now)
		if err != nil {
			return result, stats, err
		}
		rr := RuleResult{FlagName: rule.FlagName, Skipped: skipped, Eligible: eligible}
		if skipped != "" {
			e.logger.WithContext(ctx).Warn(skipped)
			stats.Notes = append(stats.Notes, skipped)
			stats.Skipped++
			result.Rules = append(result.Rules, rr)
			continue
		}

		changes := Diff(rule.FlagName, eligible, in.Current, now)
		for _, ch := range changes {
			if ch.Action == models.FlagActionSet {
				rr.ToSet = append(rr.ToSet, ch.CustomerID)
			} else {
				rr.ToClear = append(rr.ToClear, ch.CustomerID)
			}
		}
		result.Rules = append(result.Rules, rr)

		e.logger.WithContext(ctx).WithFields(map[string]any{
			"flag_name": rule.FlagName,
			"eligible":  len(eligible),
			"to_set":    len(rr.ToSet),
			"to_clear":  len(rr.ToClear),
			"dry_run":   e.opts.DryRun,
		}).Info("Evaluated flag rule")

		for _, ch := range changes {
			stats.Breakdown[string(ch.Action)]++
			stats.Produced++
			if e.opts.DryRun {
				continue
			}
			entry, err := e.apply(ctx, rule, ch)
			if err != nil {
				return result, stats, err
			}
			result.Applied = append(result.Applied, entry)
		}
	}

	e.logger.WithContext(ctx).WithFields(stats.Fields()).Info("Reconciled customer flags")
	return result, stats, nil
}

func (e *Engine) apply(ctx context.Context, rule models.FlagRule, ch models.FlagChange) (models.FlagHistoryEntry, error) {
	entry := models.FlagHistoryEntry{
		ID:         ulid.Make().String(),
		CustomerID: ch.CustomerID,
		FlagName:   ch.FlagName,
		Action:     ch.Action,
		Timestamp:  ch.Timestamp,
	}
	if err := e.store.ApplyFlagChange(ctx, entry); err != nil {
		return entry, fmt.Errorf("failed to %s %s for customer %d: %w", ch.Action, ch.FlagName, ch.CustomerID, err)
	}

	action := rule.Actions
	if ch.Action == models.FlagActionClear {
		action = rule.OnClear
	}
	if e.publisher != nil && action.LogEvent.Enabled {
		// a failed publish does not undo the applied change
		if err := e.publisher.PublishFlagChange(ctx, rule, entry); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"flag_name":   entry.FlagName,
				"customer_id": entry.CustomerID,
			}).Error("Failed to publish flag change")
		}
	}
	return entry, nil
}

func sortedIDs(s idSet) []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
