package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srfabric/srouted/pkg/config"
	"github.com/srfabric/srouted/pkg/srauth"
)

func newStartCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Full reprogram of every locally-mastered device",
		Long: `Builds a fresh ECMP shortest-path graph for every locally-mastered
device and programs its forwarding rules from scratch.

  sr-reroute-network start --topology fabric.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, cfg, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer o.Close()

			if err := authorize(cfg, username); err != nil {
				return err
			}

			ok := o.StartPopulationProcess(context.Background())
			fmt.Printf("status: %s\n", o.Status())
			if !ok {
				return fmt.Errorf("sr-reroute-network: start failed, see logs")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "operator username, checked against superuser allowlist")
	return cmd
}

// authorize prompts for a passphrase (unless the gate is unconfigured) and
// checks it via pkg/srauth before a mutating operation proceeds.
func authorize(cfg *config.Config, username string) error {
	gate := authGate(cfg)
	if gate.PassphraseHash == "" {
		return nil
	}
	pass, err := srauth.PromptPassphrase("admin passphrase: ")
	if err != nil {
		return err
	}
	return gate.Allow(username, pass)
}
