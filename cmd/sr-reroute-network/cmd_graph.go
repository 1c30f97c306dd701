package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/srfabric/srouted/pkg/cli"
	"github.com/srfabric/srouted/pkg/fabric"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <root>",
		Short: "Print the ECMP via-tree rooted at one device",
		Long: `Builds the fabric's current ECMP graphs and prints the via-path set,
organized by hop depth, for the given root device.

  sr-reroute-network graph root --topology fabric.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer o.Close()

			root := fabric.DeviceId(args[0])

			if !o.PopulateAllRoutingRules(cmd.Context()) {
				return fmt.Errorf("sr-reroute-network: building ECMP graphs failed, see logs")
			}

			snap := o.CurrentSnapshot()
			graph, ok := snap[root]
			if !ok {
				return fmt.Errorf("sr-reroute-network: %q is not a locally-mastered root", root)
			}

			t := cli.NewTable("DEPTH", "TARGET", "VIA-PATHS")
			for depth, bucket := range graph.ViaByDepth() {
				if depth == 0 {
					continue // depth 0 is the root itself
				}
				for target, paths := range bucket {
					rendered := make([]string, len(paths))
					for i, p := range paths {
						rendered[i] = renderViaPath(p)
					}
					t.Row(fmt.Sprintf("%d", depth), string(target), strings.Join(rendered, ", "))
				}
			}
			t.Flush()
			return nil
		},
	}

	return cmd
}

func renderViaPath(p []fabric.DeviceId) string {
	if len(p) == 0 {
		return cli.Dim("direct")
	}
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = string(id)
	}
	return strings.Join(parts, "->")
}
