package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newResumeCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Restart a full reprogram after ABORTED",
		Long: `Restarts populateAllRoutingRules from the ABORTED state. There is no
partial-progress checkpoint — resume always redoes the full reprogram.

  sr-reroute-network resume --topology fabric.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, cfg, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer o.Close()

			if err := authorize(cfg, username); err != nil {
				return err
			}

			ok := o.ResumePopulationProcess(context.Background())
			fmt.Printf("status: %s\n", o.Status())
			if !ok {
				return fmt.Errorf("sr-reroute-network: resume failed, see logs")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "operator username, checked against superuser allowlist")
	return cmd
}
