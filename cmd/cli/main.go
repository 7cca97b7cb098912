package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/notekeeper/internal/buildinfo"
	"github.com/dmitrijs2005/notekeeper/internal/client/cli"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/telemetry"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel, os.Stderr)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		fmt.Fprintln(os.Stderr, "set SUPABASE_URL and SUPABASE_ANON_KEY, or run with -b memory")
		os.Exit(1)
	}

	shutdown := telemetry.Setup(ctx, common.ClientInfo, buildinfo.Version(), log)
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn(context.Background(), "telemetry shutdown", "error", err)
		}
	}()

	app, cleanup, err := cli.Setup(ctx, cfg, log, os.Stdin, os.Stdout)
	if err != nil {
		log.Error(ctx, "startup failed", "error", err)
		return
	}
	defer cleanup()

	app.Run(ctx)

}
