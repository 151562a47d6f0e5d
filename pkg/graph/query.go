package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// QueryService reads the projection back.
type QueryService struct {
	client *Client
	logger ectologger.Logger
}

func NewQueryService(client *Client, logger ectologger.Logger) *QueryService {
	return &QueryService{
		client: client,
		logger: logger,
	}
}

// Neighborhood returns the customers within depth hops of root and every
// projected edge between them.
func (s *QueryService) Neighborhood(ctx context.Context, root int64, depth, minStrength int) (models.Neighborhood, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.QueryService.Neighborhood")
	defer span.End()

	if depth < 1 {
		depth = 1
	}

	// Memgraph and Neo4j both reject a parameter as a path bound.
	cypher := fmt.Sprintf(`
		MATCH (root:Customer {customer_id: $id})
		OPTIONAL MATCH (root)-[*1..%d]-(n:Customer)
		WITH root, collect(DISTINCT n) + root AS members
		UNWIND members AS a
		MATCH (a)-[r]->(b:Customer)
		WHERE b IN members AND (type(r) = 'PARENT_OF' OR r.strength >= $min_strength)
		RETURN a.customer_id AS from, b.customer_id AS to, type(r) AS rel, r.strength AS strength, r.confidence AS confidence
	`, depth)

	res, err := s.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{"id": root, "min_strength": minStrength})
		if err != nil {
			return nil, err
		}

		edges := make([]models.NeighborhoodEdge, 0)
		for result.Next(ctx) {
			edges = append(edges, edgeFromRecord(result.Record()))
		}
		return edges, result.Err()
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to query graph neighborhood")
		return models.Neighborhood{}, fmt.Errorf("failed to query graph neighborhood: %w", err)
	}

	return buildNeighborhood(root, res.([]models.NeighborhoodEdge)), nil
}

func edgeFromRecord(record *neo4j.Record) models.NeighborhoodEdge {
	from, _ := record.Get("from")
	to, _ := record.Get("to")
	rel, _ := record.Get("rel")

	edge := models.NeighborhoodEdge{From: toInt64(from), To: toInt64(to)}
	if rel == RelParentOf {
		edge.Kind = models.EdgeKindFamily
		if conf, ok := record.Get("confidence"); ok && conf != nil {
			edge.Label = fmt.Sprintf("%v", conf)
		}
		return edge
	}

	edge.Kind = models.EdgeKindConnection
	if strength, ok := record.Get("strength"); ok && strength != nil {
		edge.Strength = int(toInt64(strength))
		edge.Label = fmt.Sprintf("%d", edge.Strength)
	}
	return edge
}

func buildNeighborhood(root int64, edges []models.NeighborhoodEdge) models.Neighborhood {
	seen := map[int64]bool{root: true}
	ids := []int64{root}
	for _, e := range edges {
		for _, id := range []int64{e.From, e.To} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return models.Neighborhood{Root: root, CustomerIDs: ids, Edges: edges}
}

// toInt64 accepts the integer widths the driver may hand back.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
