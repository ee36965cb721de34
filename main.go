package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bri445/app-link-gen-res/cmd"
	"github.com/Bri445/app-link-gen-res/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		os.Exit(1)
	}
}
