package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/coordframe/agentcoord/coordinator"
)

// newKillCmd exercises Agent Registry.Kill (spec.md §4.4) against an
// ephemeral local kernel seeded with a single agent via --persona-id, since
// there is no running process to attach to.
func newKillCmd(flags *globalFlags) *cobra.Command {
	var personaID string

	cmd := &cobra.Command{
		Use:   "kill",
		Short: "Register then immediately kill an agent, printing whether the kill succeeded",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := loggingContext(flags)
			coord, err := coordinator.New(coordinator.Config{})
			if err != nil {
				return err
			}
			defer func() { _ = coord.Shutdown(ctx) }()

			id, err := coord.Agents.Register(ctx, personaID, ".", "", "")
			if err != nil {
				return fmt.Errorf("register agent: %w", err)
			}
			ok, err := coord.Agents.Kill(ctx, id)
			if err != nil {
				return fmt.Errorf("kill agent: %w", err)
			}
			log.Printf(ctx, "killed agent %s: %v", id, ok)
			return nil
		},
	}

	cmd.Flags().StringVar(&personaID, "persona-id", "demo", "persona id to assign the ephemeral agent before killing it")
	return cmd
}
