// clipwatch: watch the system clipboard and publish every change.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clipwatch",
		Short: "Watch the system clipboard and publish clipboard-changed events",
		Long: `clipwatch polls the system clipboard, detects text and image changes,
and publishes exactly one "clipboard-changed" event per distinct change.

Run "clipwatch watch" once per desktop session. Consumers subscribe through
the local IPC socket ("clipwatch tail"), gRPC, or the HTTP/WebSocket gateway
enabled with --listen.

Config file search order (first found wins):
  /etc/clipwatch/clipwatch.toml
  $HOME/.config/clipwatch/clipwatch.toml
  path supplied via --config

All flags can be set via CLIPWATCH_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newWatchCmd(),
		newTailCmd(),
		newLatestCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipwatch %s\n", Version)
		},
	}
}
