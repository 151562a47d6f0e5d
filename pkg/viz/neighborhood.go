// Package viz exports a customer's neighborhood as a Graphviz document.
package viz

import (
	"context"
	"fmt"
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

type ConnectionLookup interface {
	ForCustomer(ctx context.Context, customerID int64, minStrength int) ([]models.Connection, error)
}

type FamilyLookup interface {
	ForCustomer(ctx context.Context, customerID int64) ([]models.FamilyLink, error)
}

// Collector walks the output tables breadth first from a root customer.
type Collector struct {
	connections ConnectionLookup
	family      FamilyLookup
}

func NewCollector(connections ConnectionLookup, family FamilyLookup) *Collector {
	return &Collector{connections: connections, family: family}
}

// Neighborhood returns every customer within depth hops of root. Each edge is
// reported once. A depth below 1 is treated as 1.
func (c *Collector) Neighborhood(ctx context.Context, root int64, depth, minStrength int) (models.Neighborhood, error) {
	ctx, span := tracing.StartSpan(ctx, "viz.Collector.Neighborhood")
	defer span.End()

	if depth < 1 {
		depth = 1
	}

	visited := map[int64]bool{root: true}
	seenEdges := make(map[models.NeighborhoodEdge]bool)
	hood := models.Neighborhood{Root: root, CustomerIDs: []int64{root}, Edges: make([]models.NeighborhoodEdge, 0)}

	frontier := []int64{root}
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []int64
		for _, id := range frontier {
			edges, err := c.edges(ctx, id, minStrength)
			if err != nil {
				return hood, err
			}
			for _, e := range edges {
				if !seenEdges[e] {
					seenEdges[e] = true
					hood.Edges = append(hood.Edges, e)
				}
				for _, other := range []int64{e.From, e.To} {
					if !visited[other] {
						visited[other] = true
						hood.CustomerIDs = append(hood.CustomerIDs, other)
						next = append(next, other)
					}
				}
			}
		}
		frontier = next
	}

	sort.Slice(hood.CustomerIDs, func(i, j int) bool { return hood.CustomerIDs[i] < hood.CustomerIDs[j] })
	return hood, nil
}

func (c *Collector) edges(ctx context.Context, id int64, minStrength int) ([]models.NeighborhoodEdge, error) {
	conns, err := c.connections.ForCustomer(ctx, id, minStrength)
	if err != nil {
		return nil, fmt.Errorf("failed to read connections for customer %d: %w", id, err)
	}
	edges := make([]models.NeighborhoodEdge, 0, len(conns))
	for _, conn := range conns {
		edges = append(edges, models.NeighborhoodEdge{
			From:     conn.CustomerID1,
			To:       conn.CustomerID2,
			Kind:     models.EdgeKindConnection,
			Strength: conn.StrengthScore,
			Label:    fmt.Sprintf("%d", conn.StrengthScore),
		})
	}

	if c.family == nil {
		return edges, nil
	}
	links, err := c.family.ForCustomer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read family for customer %d: %w", id, err)
	}
	for _, l := range links {
		edges = append(edges, models.NeighborhoodEdge{
			From:  l.ParentCustomerID,
			To:    l.ChildCustomerID,
			Kind:  models.EdgeKindFamily,
			Label: string(l.Confidence),
		})
	}
	return edges, nil
}
