package main

import (
	"context"
	"fmt"
	"os"

	"github.com/medpanel/medpanel-go/internal/cli/command"
	"github.com/medpanel/medpanel-go/internal/infra/shutdown"
)

func main() {
	ctx, stop := shutdown.NewHandler(shutdown.DefaultTimeout).WithSignals(context.Background())
	defer stop()

	app := command.App()
	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
