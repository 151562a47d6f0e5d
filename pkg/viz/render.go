package viz

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// Formats maps the accepted --format values to graphviz output formats.
var Formats = map[string]graphviz.Format{
	"dot": graphviz.XDOT,
	"svg": graphviz.SVG,
	"png": graphviz.PNG,
}

// Names resolves display labels for customer ids.
type Names func(id int64) string

// Render lays out the neighborhood. Connections are undirected in meaning but
// drawn from the lower id; family edges are dashed and point at the child.
func Render(ctx context.Context, hood models.Neighborhood, names Names, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLayout("neato")
	graph.SetOverlap(false)

	nodes := make(map[int64]*cgraph.Node, len(hood.CustomerIDs))
	for _, id := range hood.CustomerIDs {
		node, err := graph.CreateNodeByName(strconv.FormatInt(id, 10))
		if err != nil {
			return nil, fmt.Errorf("failed to create node %d: %w", id, err)
		}
		label := strconv.FormatInt(id, 10)
		if names != nil {
			if name := names(id); name != "" {
				label = name
			}
		}
		node.SetLabel(label)
		if id == hood.Root {
			node.SetShape(cgraph.DoubleCircleShape)
		}
		nodes[id] = node
	}

	for i, e := range hood.Edges {
		from, to := nodes[e.From], nodes[e.To]
		if from == nil || to == nil {
			continue
		}
		edge, err := graph.CreateEdgeByName("e"+strconv.Itoa(i), from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to create edge %d-%d: %w", e.From, e.To, err)
		}
		edge.SetLabel(e.Label)
		if e.Kind == models.EdgeKindFamily {
			edge.SetStyle(cgraph.DashedEdgeStyle)
		} else {
			edge.SetDir(cgraph.NoneDir)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, format, &buf); err != nil {
		return nil, fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.Bytes(), nil
}
