// Command coordinatord hosts the coordination kernel as a standalone
// process and exposes a small set of operator subcommands for local
// smoke-testing against an in-process Coordinator.
//
// coordinatord is deliberately thin: the kernel (agents, tasks, wait,
// memory, eventlog) carries the actual state machine and concurrency
// guarantees from spec.md; this command only wires it up and prints
// results. It does not implement a network protocol — spec.md §1 places
// wire framing out of scope for the core — so every subcommand other than
// serve operates against an ephemeral, process-local Coordinator that
// exists only for the duration of the command.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
