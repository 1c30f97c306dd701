package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/srfabric/srouted/pkg/cli"
)

func newStatusCmd() *cobra.Command {
	var (
		jsonOutput bool
		query      string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Current lifecycle status and ECMP snapshot",
		Long: `Prints the Orchestrator's lifecycle status (IDLE/STARTED/SUCCEEDED/
ABORTED) and, for each locally-mastered root device, the number of
depth levels (root included) in its current ECMP graph.

  sr-reroute-network status --topology fabric.yaml
  sr-reroute-network status --topology fabric.yaml --json
  sr-reroute-network status --topology fabric.yaml --json --query '.snapshot.leaf'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer o.Close()

			// Each CLI invocation starts a fresh Orchestrator and status
			// runs no cycle, so it always reports IDLE with an empty
			// snapshot; a cycle run by an earlier "start" invocation does
			// not carry over.
			snap := o.CurrentSnapshot()
			depths := make(map[string]int, len(snap))
			for root, graph := range snap {
				depths[string(root)] = len(graph.ViaByDepth())
			}

			report := map[string]interface{}{
				"status":   string(o.Status()),
				"snapshot": depths,
			}

			if query != "" {
				return runQuery(query, report)
			}
			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Printf("status: %s\n", report["status"])
			t := cli.NewTable("ROOT", "DEPTH-LEVELS")
			for root, d := range depths {
				t.Row(root, fmt.Sprintf("%d", d))
			}
			t.Flush()
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	cmd.Flags().StringVar(&query, "query", "", "gojq expression filtering the JSON report")

	return cmd
}

// runQuery evaluates a jq expression against report and prints every
// emitted value as its own JSON line, matching jq's own CLI convention.
func runQuery(expr string, report map[string]interface{}) error {
	q, err := gojq.Parse(expr)
	if err != nil {
		return fmt.Errorf("sr-reroute-network: parsing --query: %w", err)
	}

	iter := q.Run(report)
	enc := json.NewEncoder(os.Stdout)
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("sr-reroute-network: evaluating --query: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
}
