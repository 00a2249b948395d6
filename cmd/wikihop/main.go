package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sanonone/wikihop/internal/cli"
)

func main() {
	// Ctrl+C cancels a running search and shuts the server down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
