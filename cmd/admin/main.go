package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sales_import/internal/app"
	"sales_import/internal/cli"
	"sales_import/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg *config.Config
	open := func(ctx context.Context) (*app.App, error) {
		cfg = config.Init(ctx)
		if err := cli.RequireDurable(cfg.StoreBackend); err != nil {
			return nil, err
		}
		return app.New(ctx, cfg)
	}

	err := cli.NewRootCommand(open).ExecuteContext(ctx)
	if cfg != nil {
		cfg.Close(context.Background())
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
