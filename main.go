package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sharksmhi/ctdstations/cmd"
	"github.com/sharksmhi/ctdstations/internal/buildinfo"
	"github.com/sharksmhi/ctdstations/internal/conf"
)

// Build metadata, set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = ""
	buildDate = ""
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	build := buildinfo.NewContext(version, buildDate)
	if err := cmd.Execute(ctx, settings, build, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
