package main

import (
	"context"

	"goa.design/clue/log"
)

// loggingContext sets up a clue logging context per flags, mirroring the
// teacher's example/cmd/assistant/main.go wiring: JSON format when not
// attached to a terminal, terminal format otherwise, with debug logs gated
// behind --verbose.
func loggingContext(flags *globalFlags) context.Context {
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if flags.verbose {
		ctx = log.Context(ctx, log.WithDebug())
	}
	return ctx
}
