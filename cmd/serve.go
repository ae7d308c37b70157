package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/homeboard/internal/server"
	"github.com/desertthunder/homeboard/internal/shared"
)

// janitorInterval is how often expired cache entries are swept.
const janitorInterval = 5 * time.Minute

// Serve runs the dashboard API until SIGINT or SIGTERM.
//
// The data directory is locked for the lifetime of the process so two servers never
// overwrite each other's tokens or content files.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = port
	}

	lock, err := shared.AcquireInstanceLock(config.Storage.DataDir)
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			r.logger.Warn("failed to close storage", "error", err)
		}
	}()

	a.deps.Cache.StartJanitor(ctx, janitorInterval)

	for _, s := range a.providers() {
		r.logger.Info("provider", "name", s.Name(), "mode", server.ProviderMode(s))
	}
	r.logger.Info("starting homeboard", "addr", config.Server.Addr(), "url", config.Server.BaseURL(),
		"storage", config.Storage.Backend, "lock", lock.Path())

	if err := server.New(a.deps).ListenAndServe(ctx, config.Server.Addr()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	r.logger.Info("homeboard stopped")
	return nil
}
