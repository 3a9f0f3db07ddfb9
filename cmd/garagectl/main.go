package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cmd"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root := cmd.NewRootCmd(version, buildDate)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		if msg := cmd.Describe(err); msg != "canceled" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}
