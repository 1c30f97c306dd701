// Command sr-reroute-network is the administrative CLI surface for the
// segment-routing default routing handler (spec §6). It loads a
// YAML-described fabric fixture, wires it into an Orchestrator alongside
// a logging RulePopulator, and exposes the trigger and observability
// operations as cobra subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/srfabric/srouted/pkg/version"
)

var (
	topologyFlag string
	configFlag   string
	verboseFlag  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sr-reroute-network",
		Short: "Trigger and inspect segment-routing default route population",
		Long: `sr-reroute-network drives ECMP shortest-path computation and switch
forwarding-table programming for a segment-routed fabric.

  sr-reroute-network start                 # full reprogram of every locally-mastered device
  sr-reroute-network resume                 # restart a full reprogram after ABORTED
  sr-reroute-network status                 # current lifecycle status and snapshot
  sr-reroute-network graph <root>            # print the ECMP via-tree rooted at one device
  sr-reroute-network subnet populate <dev>   # (re)install one device's subnet scope
  sr-reroute-network subnet revoke <prefix>  # revoke a subnet rule fabric-wide
  sr-reroute-network ports populate <dev>    # install a device's punt/filter rules`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&topologyFlag, "topology", "", "path to a YAML fabric fixture (required)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to a YAML controller config (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		newStartCmd(),
		newResumeCmd(),
		newStatusCmd(),
		newGraphCmd(),
		newSubnetCmd(),
		newPortsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(version.Info())
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
