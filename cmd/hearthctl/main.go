// Package main provides hearthctl, the operator command line for a running
// Hearth supervisor.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "hearthctl",
		Short:   "Hearth operator CLI",
		Long:    `hearthctl inspects a running Hearth supervisor, issues operator tokens and sends control commands.`,
		Version: Version,

		SilenceUsage: true,
	}

	root.AddCommand(
		newStatusCmd(),
		newTokenCmd(),
		newSendCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
