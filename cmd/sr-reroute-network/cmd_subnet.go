package main

import (
	"fmt"
	"net/netip"

	"github.com/spf13/cobra"

	"github.com/srfabric/srouted/pkg/fabric"
	"github.com/srfabric/srouted/pkg/orchestrator"
)

func newSubnetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subnet",
		Short: "(Re)install or revoke a device's subnet scope",
	}
	cmd.AddCommand(newSubnetPopulateCmd(), newSubnetRevokeCmd())
	return cmd
}

func newSubnetPopulateCmd() *cobra.Command {
	var prefixes []string

	cmd := &cobra.Command{
		Use:   "populate <device>",
		Short: "(Re)install a device's subnet rule scope from its current ECMP graph",
		Long: `Runs a full reprogram first so the device has a current ECMP graph,
then (re)installs the subnet rules for the given prefixes (or the
device's configured subnets, if none are given).

  sr-reroute-network subnet populate leaf --topology fabric.yaml
  sr-reroute-network subnet populate leaf --prefix 192.168.1.0/24 --topology fabric.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer o.Close()

			device := fabric.DeviceId(args[0])

			subnets, err := parsePrefixes(prefixes)
			if err != nil {
				return err
			}

			if !o.PopulateAllRoutingRules(cmd.Context()) {
				return fmt.Errorf("sr-reroute-network: building ECMP graphs failed, see logs")
			}

			cp := orchestrator.ControlPoint{Device: device}
			if !o.PopulateSubnet(cmd.Context(), cp, subnets) {
				return fmt.Errorf("sr-reroute-network: populateSubnet failed for %s, see logs", device)
			}
			fmt.Printf("populated subnet scope for %s\n", device)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&prefixes, "prefix", nil, "subnet prefix to install (repeatable; default: device's configured subnets)")
	return cmd
}

func newSubnetRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <prefix> [prefix...]",
		Short: "Revoke one or more subnet rules fabric-wide",
		Long: `Revokes the IP subnet rule for each given prefix everywhere it is
installed (spec §4.4 RevokeSubnet).

  sr-reroute-network subnet revoke 192.168.1.0/24 --topology fabric.yaml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, _, err := buildOrchestrator()
			if err != nil {
				return err
			}
			defer o.Close()

			subnets, err := parsePrefixes(args)
			if err != nil {
				return err
			}

			if !o.RevokeSubnet(cmd.Context(), subnets) {
				return fmt.Errorf("sr-reroute-network: revokeSubnet failed, see logs")
			}
			fmt.Printf("revoked %d subnet(s)\n", len(subnets))
			return nil
		},
	}
	return cmd
}

func parsePrefixes(raw []string) ([]fabric.IpPrefix, error) {
	out := make([]fabric.IpPrefix, 0, len(raw))
	for _, s := range raw {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("sr-reroute-network: bad prefix %q: %w", s, err)
		}
		out = append(out, p)
	}
	return out, nil
}
