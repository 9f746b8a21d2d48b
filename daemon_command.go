package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/mproffitt/folden/pkg/api"
	"github.com/mproffitt/folden/pkg/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// shutdownTimeout how long handlers get to finish their current event on exit
const shutdownTimeout = 10 * time.Second

func newDaemonCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the folden daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), cc)
		},
	}
}

func runDaemon(cmdCtx context.Context, cc *commandContext) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	config, err := cc.loadConfig(ctx)
	if err != nil {
		log.Fatalf("Config file is invalid or doesn't exist. %q", err)
	}
	log.Debug(fmt.Sprintf("%+v", config))

	if err := os.MkdirAll(filepath.Dir(config.LockFile), 0o750); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(config.LockFile)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another folden daemon holds %s", config.LockFile)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warnf("Failed to release daemon lock - %s", err.Error())
		}
	}()

	supervisor := server.New(config, nil)
	if _, err := supervisor.Reconcile(ctx); err != nil {
		log.Errorf("Unable to restore mapping - %s", err.Error())
	}

	apiServer := api.NewServer(config.Address, supervisor)
	if err := apiServer.Start(ctx); err != nil {
		shutdown(supervisor, apiServer)
		return err
	}

	log.Info("Daemon ready")
	<-ctx.Done()
	log.Info("Shutting down")
	shutdown(supervisor, apiServer)
	log.Info("Done")
	return nil
}

func shutdown(supervisor *server.Server, apiServer *api.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		log.Warnf("API server did not shut down cleanly - %s", err.Error())
	}
	if err := supervisor.Shutdown(ctx); err != nil {
		log.Warnf("Handlers did not shut down cleanly - %s", err.Error())
	}
}
