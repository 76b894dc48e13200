package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// AppVersion is set at build time with -ldflags "-X main.AppVersion=...".
var AppVersion = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}
