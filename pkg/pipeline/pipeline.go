// Package pipeline runs the reconciliation stages in dependency order over one
// snapshot and persists each stage's output.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	flagrepo "github.com/Ramsey-B/fern/internal/repositories/flag"
	fctx "github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/connections"
	"github.com/Ramsey-B/fern/pkg/family"
	"github.com/Ramsey-B/fern/pkg/flags"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/interactions"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/snapshot"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/transfers"
)

type TransferStore interface {
	List(ctx context.Context) ([]models.Transfer, error)
	Upsert(ctx context.Context, transfers []models.Transfer) (int64, error)
}

type InteractionStore interface {
	List(ctx context.Context) ([]models.Interaction, error)
	Append(ctx context.Context, rows []models.Interaction) (int, error)
}

type ConnectionStore interface {
	Rebuild(ctx context.Context, conns []models.Connection) error
}

type FamilyStore interface {
	Rebuild(ctx context.Context, links []models.FamilyLink) error
}

type FlagStore interface {
	flags.Store
	Current(ctx context.Context, customerID int64) ([]models.CustomerFlag, error)
	History(ctx context.Context, filter flagrepo.HistoryFilter) ([]models.FlagHistoryEntry, error)
}

// Projector mirrors stage output into the graph database.
type Projector interface {
	ProjectConnections(ctx context.Context, conns []models.Connection) error
	ProjectFamily(ctx context.Context, links []models.FamilyLink) error
}

// Recorder receives stage stats for metrics.
type Recorder interface {
	ObserveStage(stats models.StageStats, elapsed time.Duration)
}

// Deps wires the pipeline. Graph, Publisher and Metrics are optional.
type Deps struct {
	Snapshot     *snapshot.Store
	Transfers    TransferStore
	Interactions InteractionStore
	Connections  ConnectionStore
	Family       FamilyStore
	Flags        FlagStore
	Graph        Projector
	Publisher    flags.Publisher
	Metrics      Recorder
	Logger       ectologger.Logger
}

type Options struct {
	Identity     identity.Config
	Interactions interactions.Options
	Rules        []models.FlagRule
	DryRun       bool
	Now          func() time.Time
	// Out receives the per-stage summary lines. Nil discards them.
	Out io.Writer
}

type Pipeline struct {
	deps Deps
	opts Options
}

// Report collects the stats of every stage that ran.
type Report struct {
	Stages []models.StageStats `json:"stages"`
}

func New(deps Deps, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Interactions.Now == nil {
		opts.Interactions.Now = opts.Now
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Run executes every stage in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Run")
	defer span.End()

	var report Report
	enriched, stats, err := p.Transfers(ctx)
	report.Stages = append(report.Stages, stats...)
	if err != nil {
		return report, err
	}

	steps := []func(context.Context) (models.StageStats, error){
		func(ctx context.Context) (models.StageStats, error) { return p.Interactions(ctx, enriched) },
		p.Connections,
		p.Family,
		func(ctx context.Context) (models.StageStats, error) {
			_, stats, err := p.Flags(ctx)
			return stats, err
		},
	}
	for _, step := range steps {
		stats, err := step(ctx)
		report.Stages = append(report.Stages, stats)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// Transfers parses check-ins, resolves purchasers and upserts the result. It
// returns the parse and resolve stats.
func (p *Pipeline) Transfers(ctx context.Context) ([]models.Transfer, []models.StageStats, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Transfers")
	defer span.End()

	start := time.Now()
	parsed, parseStats := transfers.NewParser().Parse(p.deps.Snapshot.CheckIns)
	p.report(ctx, parseStats, start)

	start = time.Now()
	stored, err := p.deps.Transfers.List(ctx)
	if err != nil {
		return nil, []models.StageStats{parseStats}, fmt.Errorf("failed to read stored transfers: %w", err)
	}
	prior := make(map[int64]models.Resolution, len(stored))
	for _, t := range stored {
		prior[t.CheckInID] = t.Resolution()
	}
	for i, t := range parsed {
		if r, ok := prior[t.CheckInID]; ok {
			parsed[i] = t.WithResolution(r)
		}
	}

	resolver := identity.NewResolver(p.opts.Identity, p.deps.Snapshot.Customers, p.deps.Snapshot.Transactions)
	resolved, resolveStats := resolver.ResolveAll(parsed)
	if p.deps.Snapshot.Transactions == nil {
		resolveStats.Notes = append(resolveStats.Notes, "transaction linking skipped: no transaction log")
	}

	if _, err := p.deps.Transfers.Upsert(ctx, resolved); err != nil {
		return nil, []models.StageStats{parseStats, resolveStats}, fmt.Errorf("failed to store transfers: %w", err)
	}
	p.report(ctx, resolveStats, start)
	return resolved, []models.StageStats{parseStats, resolveStats}, nil
}

// Interactions extracts and appends interactions. A nil enriched reads the
// stored transfers instead.
func (p *Pipeline) Interactions(ctx context.Context, enriched []models.Transfer) (models.StageStats, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Interactions")
	defer span.End()

	start := time.Now()
	if enriched == nil {
		stored, err := p.deps.Transfers.List(ctx)
		if err != nil {
			return models.StageStats{Stage: "interactions.extract"}, fmt.Errorf("failed to read stored transfers: %w", err)
		}
		enriched = stored
	}

	s := p.deps.Snapshot
	rows, stats := interactions.NewExtractor(p.opts.Interactions, p.deps.Logger).Extract(ctx, interactions.Input{
		Transfers: enriched,
		CheckIns:  s.CheckIns,
		Customers: s.Customers,
		Rosters:   s.Rosters,
	})

	inserted, err := p.deps.Interactions.Append(ctx, rows)
	if err != nil {
		return stats, fmt.Errorf("failed to store interactions: %w", err)
	}
	stats.Notes = append(stats.Notes, fmt.Sprintf("%d new, %d already recorded", inserted, len(rows)-inserted))
	p.report(ctx, stats, start)
	return stats, nil
}

// Connections rebuilds the connection table from the full interaction history.
func (p *Pipeline) Connections(ctx context.Context) (models.StageStats, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Connections")
	defer span.End()

	start := time.Now()
	history, err := p.deps.Interactions.List(ctx)
	if err != nil {
		return models.StageStats{Stage: "connections.aggregate"}, fmt.Errorf("failed to read interactions: %w", err)
	}

	conns, stats := connections.Aggregate(history)
	if err := p.deps.Connections.Rebuild(ctx, conns); err != nil {
		return stats, fmt.Errorf("failed to store connections: %w", err)
	}
	if p.deps.Graph != nil {
		if err := p.deps.Graph.ProjectConnections(ctx, conns); err != nil {
			p.deps.Logger.WithContext(ctx).WithError(err).Error("Failed to project connections to graph")
			stats.Notes = append(stats.Notes, "graph projection failed: "+err.Error())
		}
	}
	p.report(ctx, stats, start)
	return stats, nil
}

// Family resolves and rebuilds the family relationship table.
func (p *Pipeline) Family(ctx context.Context) (models.StageStats, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Family")
	defer span.End()

	start := time.Now()
	s := p.deps.Snapshot
	links, stats := family.NewResolver(p.opts.Now, p.deps.Logger).Resolve(ctx, family.Input{
		Customers: s.Customers,
		Relations: s.Relations,
		Rosters:   s.Rosters,
	})

	if err := p.deps.Family.Rebuild(ctx, links); err != nil {
		return stats, fmt.Errorf("failed to store family relationships: %w", err)
	}
	if p.deps.Graph != nil {
		if err := p.deps.Graph.ProjectFamily(ctx, links); err != nil {
			p.deps.Logger.WithContext(ctx).WithError(err).Error("Failed to project family links to graph")
			stats.Notes = append(stats.Notes, "graph projection failed: "+err.Error())
		}
	}
	p.report(ctx, stats, start)
	return stats, nil
}

// Flags evaluates the rules against the snapshot and the stored flag state.
func (p *Pipeline) Flags(ctx context.Context) (flags.Result, models.StageStats, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Pipeline.Flags")
	defer span.End()

	start := time.Now()
	current, err := p.deps.Flags.Current(ctx, 0)
	if err != nil {
		return flags.Result{}, models.StageStats{Stage: "flags.evaluate"}, fmt.Errorf("failed to read current flags: %w", err)
	}
	history, err := p.deps.Flags.History(ctx, flagrepo.HistoryFilter{})
	if err != nil {
		return flags.Result{}, models.StageStats{Stage: "flags.evaluate"}, fmt.Errorf("failed to read flag history: %w", err)
	}

	s := p.deps.Snapshot
	engine := flags.NewEngine(p.opts.Rules, p.deps.Flags, p.deps.Publisher, flags.Options{Now: p.opts.Now, DryRun: p.opts.DryRun}, p.deps.Logger)
	result, stats, err := engine.Run(ctx, flags.Input{
		Customers:   s.Customers,
		CheckIns:    s.CheckIns,
		Messages:    s.Messages,
		Memberships: s.Memberships(),
		History:     history,
		Current:     current,
	})
	if err != nil {
		return result, stats, fmt.Errorf("failed to apply flags: %w", err)
	}
	if p.opts.DryRun {
		stats.Notes = append(stats.Notes, "dry run: no changes written")
	}
	p.report(ctx, stats, start)
	return result, stats, nil
}

func (p *Pipeline) report(ctx context.Context, stats models.StageStats, start time.Time) {
	elapsed := time.Since(start)

	line := stats.String()
	if len(stats.Notes) > 0 {
		line += " (" + strings.Join(stats.Notes, "; ") + ")"
	}
	fmt.Fprintln(p.opts.Out, line)

	fields := stats.Fields()
	fields["elapsed_ms"] = elapsed.Milliseconds()
	if runID := fctx.GetRunID(ctx); runID != "" {
		fields["run_id"] = runID
	}
	p.deps.Logger.WithContext(ctx).WithFields(fields).Info("Stage complete")

	if p.deps.Metrics != nil {
		p.deps.Metrics.ObserveStage(stats, elapsed)
	}
}
