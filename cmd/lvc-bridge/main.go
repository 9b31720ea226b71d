// Package main is the entrypoint for lvc-bridge.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/morezero/lvc-bridge/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lvc-bridge: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree; serve is the default action.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lvc-bridge",
		Short: "Resolve the local voice-control IPC topology and bridge POI requests",
		Long: `lvc-bridge resolves the socket endpoints of the local voice-control engine
from an optional configuration document (or the default layout under
APP_DATA_DIR), publishes them, and bridges POI search and lookup requests
to a provider over COMMS.

Environment: APP_DATA_DIR, LVC_CONFIG_FILE, LVC_CAPABILITIES, COMMS_URL,
PROVIDER_SUBJECT, DATABASE_URL, MIGRATION_PATH, HTTP_PORT, LOG_LEVEL. See README.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run()
		},
	}

	root.AddCommand(
		newServeCmd(),
		newResolveCmd(),
		newMigrateCmd(),
		newProbeCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge (COMMS, HTTP, topology watch)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return server.Run()
		},
	}
}
