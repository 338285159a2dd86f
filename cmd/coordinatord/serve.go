package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/coordframe/agentcoord/collaborators"
	"github.com/coordframe/agentcoord/coordinator"
	"github.com/coordframe/agentcoord/internal/telemetry"
)

// newServeCmd builds the long-running host process: it wires a real
// Coordinator (on-disk workspaces, a directory persona resolver, no-op
// version control and terminal launcher) and keeps it alive until
// SIGINT/SIGTERM, with the
// Event Logger running in the background the whole time. It does not open
// any network listener — spec.md §1 places network protocol framing
// outside the kernel's scope, so this subcommand exists to prove the
// kernel boots and shuts down cleanly, not to serve RPC traffic.
// coordinator.Config has no process terminator, so the Agent Registry it
// builds has none: killing an agent here records the kill and fails its
// in-progress tasks but sends no signal to any process.
func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the coordination kernel until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := loggingContext(flags)
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			coord, err := coordinator.New(coordinator.Config{
				Logger:     telemetry.NewClueLogger(),
				Metrics:    telemetry.NewClueMetrics(),
				Personas:   collaborators.DirectoryResolver{Dir: flags.personaDir},
				Workspaces: collaborators.LocalWorkspaceManager{Root: flags.workspaceRoot},
				VCS:        &collaborators.NoopVersionControl{},
				Terminals:  collaborators.NoopTerminalLauncher{},
			})
			if err != nil {
				return err
			}

			log.Printf(ctx, "coordinatord ready: workspace-root=%s persona-dir=%s", flags.workspaceRoot, flags.personaDir)
			<-ctx.Done()
			log.Printf(ctx, "coordinatord shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return coord.Shutdown(shutdownCtx)
		},
	}
}
