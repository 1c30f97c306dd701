package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/srfabric/srouted/pkg/fabric"
)

func newPortsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Install port-addressing rules for a device",
	}
	cmd.AddCommand(newPortsPopulateCmd())
	return cmd
}

func newPortsPopulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "populate <device>",
		Short: "Install router-IP/ARP/NDP punts and MAC/VLAN filters, starting the retry loop if needed",
		Long: `Installs a device's punt and filter rules (spec §4.3's port-addressing
path, independent of route install) and kicks off RetryFilters when the
first MAC/VLAN filter read comes back empty.

  sr-reroute-network ports populate leaf --topology fabric.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer o.Close()

			device := fabric.DeviceId(args[0])
			if err := o.PopulatePortAddressing(cmd.Context(), device); err != nil {
				return fmt.Errorf("sr-reroute-network: populatePortAddressing failed for %s: %w", device, err)
			}
			fmt.Printf("populated port addressing for %s\n", device)
			return nil
		},
	}
	return cmd
}
