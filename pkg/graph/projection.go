package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	LabelCustomer   = "Customer"
	RelConnectedTo  = "CONNECTED_TO"
	RelParentOf     = "PARENT_OF"
	projectionBatch = 1000
)

const (
	clearConnectionsCypher = `MATCH (:Customer)-[r:CONNECTED_TO]-(:Customer) DELETE r`
	clearFamilyCypher      = `MATCH (:Customer)-[r:PARENT_OF]->(:Customer) DELETE r`

	mergeConnectionsCypher = `
		UNWIND $batch AS data
		MERGE (a:Customer {customer_id: data.a})
		MERGE (b:Customer {customer_id: data.b})
		MERGE (a)-[r:CONNECTED_TO]->(b)
		SET r.strength = data.strength,
			r.interaction_count = data.count,
			r.interaction_types = data.types,
			r.first_date = data.first_date,
			r.last_date = data.last_date`

	mergeFamilyCypher = `
		UNWIND $batch AS data
		MERGE (p:Customer {customer_id: data.parent})
		MERGE (c:Customer {customer_id: data.child})
		MERGE (p)-[r:PARENT_OF]->(c)
		SET r.confidence = data.confidence,
			r.source = data.source`
)

// Projector mirrors the rebuilt output tables into the graph. Each projection
// replaces every edge of its type in one write transaction.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{client: client, logger: logger}
}

func (p *Projector) ProjectConnections(ctx context.Context, conns []models.Connection) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectConnections")
	defer span.End()

	rows := ectolinq.Map(conns, connectionParams)
	if err := p.replace(ctx, clearConnectionsCypher, mergeConnectionsCypher, rows); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to project connections")
		return fmt.Errorf("failed to project connections: %w", err)
	}

	p.logger.WithContext(ctx).WithField("edges", len(rows)).Info("Projected connections to graph")
	return nil
}

func (p *Projector) ProjectFamily(ctx context.Context, links []models.FamilyLink) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectFamily")
	defer span.End()

	rows := ectolinq.Map(links, familyParams)
	if err := p.replace(ctx, clearFamilyCypher, mergeFamilyCypher, rows); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to project family links")
		return fmt.Errorf("failed to project family links: %w", err)
	}

	p.logger.WithContext(ctx).WithField("edges", len(rows)).Info("Projected family links to graph")
	return nil
}

func (p *Projector) replace(ctx context.Context, clear, merge string, rows []map[string]any) error {
	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, clear, nil); err != nil {
			return nil, err
		}
		for _, batch := range database.Chunk(rows, projectionBatch) {
			if _, err := tx.Run(ctx, merge, map[string]any{"batch": batch}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func connectionParams(c models.Connection) map[string]any {
	return map[string]any{
		"a":          c.CustomerID1,
		"b":          c.CustomerID2,
		"strength":   c.StrengthScore,
		"count":      c.InteractionCount,
		"types":      []string(c.InteractionTypes),
		"first_date": c.FirstInteractionDate.Format(models.DateLayout),
		"last_date":  c.LastInteractionDate.Format(models.DateLayout),
	}
}

func familyParams(l models.FamilyLink) map[string]any {
	return map[string]any{
		"parent":     l.ParentCustomerID,
		"child":      l.ChildCustomerID,
		"confidence": string(l.Confidence),
		"source":     l.Source,
	}
}
