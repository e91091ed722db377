package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath is the optional YAML configuration file, shared by all commands.
var configPath string

// rootCmd is the top-level cobra command for netprobe.
var rootCmd = &cobra.Command{
	Use:   "netprobe",
	Short: "Periodic TCP/UDP reachability prober",
	Long: "netprobe exercises a TCP or UDP path to one fixed remote endpoint with\n" +
		"periodic heartbeats, validating reachability through NAT/firewall paths.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to configuration file (YAML)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
