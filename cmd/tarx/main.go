// Command tarx creates, inspects, extracts and converts tar archives.
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := newCLI(os.Stdin, os.Stdout, os.Stderr)
	if err := c.rootCommand().ExecuteContext(ctx); err != nil {
		c.printError(err)
		stop()
		os.Exit(1)
	}
}
