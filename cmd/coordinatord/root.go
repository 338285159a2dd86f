package main

import (
	"time"

	"github.com/spf13/cobra"
)

// shutdownGrace bounds how long serve waits for the Event Logger to drain
// in-flight writes on shutdown.
const shutdownGrace = 5 * time.Second

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	workspaceRoot string
	personaDir    string
	verbose       bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "coordinatord",
		Short:         "Multi-agent coordination kernel",
		Long:          "coordinatord wires up the coordination kernel (agent registry, task coordinator, wait service, memory service, event logger) and exposes operator subcommands for local use.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&flags.workspaceRoot, "workspace-root", "./workspaces", "root directory under which per-agent workspaces are created")
	root.PersistentFlags().StringVar(&flags.personaDir, "persona-dir", "./personas", "directory scanned for <personaId>.md persona files")
	root.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "enable debug-level logging")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newRegisterCmd(flags))
	root.AddCommand(newKillCmd(flags))
	root.AddCommand(newStatusCmd(flags))
	root.AddCommand(newAgentLoopCmd(flags))

	return root
}
