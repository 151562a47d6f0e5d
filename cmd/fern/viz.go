package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/viz"
	"github.com/spf13/cobra"
)

type neighborhoodSource interface {
	Neighborhood(ctx context.Context, root int64, depth, minStrength int) (models.Neighborhood, error)
}

func vizCmd() *cobra.Command {
	var (
		customerID  int64
		depth       int
		minStrength int
		out         string
		format      string
	)
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Export a customer's connection and family neighborhood",
		Long: `Render the customers within --depth hops of --customer.

Examples:
  fern viz --customer 1042
  fern viz --customer 1042 --depth 2 --out 1042.dot
  fern viz --customer 1042 --format svg --out 1042.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			gvFormat, ok := viz.Formats[strings.ToLower(format)]
			if !ok {
				return fmt.Errorf("unsupported format %q (want one of %s)", format, strings.Join(formatNames(), ", "))
			}

			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			root, err := a.repos.customers.Get(ctx, customerID)
			if err != nil {
				return err
			}
			if root == nil {
				return fmt.Errorf("customer %d not found", customerID)
			}

			var source neighborhoodSource = viz.NewCollector(a.repos.connections, a.repos.family)
			if a.graph != nil {
				source = graph.NewQueryService(a.graph, a.logger)
			}
			hood, err := source.Neighborhood(ctx, customerID, depth, minStrength)
			if err != nil {
				return err
			}

			all, err := a.repos.customers.List(ctx)
			if err != nil {
				return err
			}
			data, err := viz.Render(ctx, hood, customerNames(all), gvFormat)
			if err != nil {
				return err
			}
			return writeOutput(out, data, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&customerID, "customer", 0, "root customer id")
	cmd.Flags().IntVar(&depth, "depth", 1, "number of hops from the root customer")
	cmd.Flags().IntVar(&minStrength, "min-strength", 0, "ignore connections weaker than this")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func formatNames() []string {
	names := make([]string, 0, len(viz.Formats))
	for name := range viz.Formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// customerNames labels nodes "First Last (#id)", falling back to the id alone.
func customerNames(customers []models.Customer) viz.Names {
	byID := make(map[int64]string, len(customers))
	for _, c := range customers {
		byID[c.ID] = strings.TrimSpace(c.FullName())
	}
	return func(id int64) string {
		if name := byID[id]; name != "" {
			return fmt.Sprintf("%s (#%d)", name, id)
		}
		return fmt.Sprintf("#%d", id)
	}
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
