package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coordframe/agentcoord/coordinator"
	"github.com/coordframe/agentcoord/internal/store"
)

// newStatusCmd runs a short scripted scenario against an ephemeral local
// kernel and prints the resulting agent/task snapshot, demonstrating the
// getTasksByStatus / listAgents contracts (spec.md §6) end to end without
// requiring a running server.
func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a snapshot of agents and tasks from a scripted demo scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := loggingContext(flags)
			coord, err := coordinator.New(coordinator.Config{})
			if err != nil {
				return err
			}
			defer func() { _ = coord.Shutdown(ctx) }()

			agentID, err := coord.Agents.Register(ctx, "demo", ".", "", "")
			if err != nil {
				return err
			}
			if _, err := coord.Agents.Heartbeat(ctx, agentID); err != nil {
				return err
			}
			if _, err := coord.Tasks.CreateTask(ctx, "", "demo", "do the thing", "status demo task", store.PriorityNormal); err != nil {
				return err
			}

			agentsList, err := coord.Agents.List(ctx, "")
			if err != nil {
				return err
			}
			fmt.Println("Agents:")
			for _, a := range agentsList {
				fmt.Printf("  %s  persona=%s  status=%s\n", a.ID, a.PersonaID, a.Status)
			}

			pending, err := coord.Tasks.TasksByStatus(ctx, store.TaskPending)
			if err != nil {
				return err
			}
			fmt.Println("Pending tasks:")
			for _, t := range pending {
				fmt.Printf("  %s  priority=%s  description=%q\n", t.ID, t.Priority, t.Description)
			}
			return nil
		},
	}
}
