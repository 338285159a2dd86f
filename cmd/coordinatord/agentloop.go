package main

import (
	"github.com/spf13/cobra"
	"goa.design/clue/log"
)

// newAgentLoopCmd is the subcommand rpc.Server.LaunchAgent spawns inside a
// newly launched agent's terminal (see rpc/server.go). In a full
// deployment it would dial back into the coordinator's RPC surface and
// loop on getNextTask/reportTaskCompletion; that transport is out of the
// kernel's scope per spec.md §1 ("the RPC tool surface... interfaces
// only"), so this subcommand only documents the contract boundary — it
// logs which agent it was launched for and exits.
func newAgentLoopCmd(flags *globalFlags) *cobra.Command {
	var agentID string
	var yolo bool

	cmd := &cobra.Command{
		Use:   "agent-loop",
		Short: "Entry point a launched agent process runs in its terminal",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := loggingContext(flags)
			log.Printf(ctx, "agent-loop started for agent %s (yolo=%v); no RPC transport is wired in this kernel build", agentID, yolo)
			return nil
		},
	}

	cmd.Flags().StringVar(&agentID, "agent-id", "", "agent id this process was launched for")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "run without confirmation prompts")
	_ = cmd.MarkFlagRequired("agent-id")

	return cmd
}
