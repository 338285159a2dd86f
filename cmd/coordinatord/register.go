package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/coordframe/agentcoord/coordinator"
)

// newRegisterCmd registers a single agent against a fresh, process-local
// Coordinator and prints its id. Since coordinatord has no network
// transport, this is a smoke-test for the Agent Registry's register
// operation (spec.md §4.4), not a way to add an agent to a running serve
// process — there is no IPC between separate coordinatord invocations.
func newRegisterCmd(flags *globalFlags) *cobra.Command {
	var (
		personaID    string
		workingDir   string
		model        string
		worktreeName string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new agent against an ephemeral local kernel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := loggingContext(flags)
			coord, err := coordinator.New(coordinator.Config{})
			if err != nil {
				return err
			}
			defer func() { _ = coord.Shutdown(ctx) }()

			id, err := coord.Agents.Register(ctx, personaID, workingDir, model, worktreeName)
			if err != nil {
				return fmt.Errorf("register agent: %w", err)
			}
			log.Printf(ctx, "registered agent %s (persona=%s)", id, personaID)
			fmt.Println(id)
			return nil
		},
	}

	cmd.Flags().StringVar(&personaID, "persona-id", "", "persona id to assign the agent")
	cmd.Flags().StringVar(&workingDir, "working-directory", "", "agent working directory")
	cmd.Flags().StringVar(&model, "model", "", "model hint recorded on the agent")
	cmd.Flags().StringVar(&worktreeName, "worktree-name", "", "worktree name hint recorded on the agent")
	_ = cmd.MarkFlagRequired("persona-id")
	_ = cmd.MarkFlagRequired("working-directory")

	return cmd
}
