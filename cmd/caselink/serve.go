package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/httpapi"
	"github.com/fyrsmithlabs/caselink/internal/importer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and, if configured, the drop-directory watcher",
	Long: `Start the caselink HTTP server. When importer.watch_dir is set, a
filesystem watcher imports Outlook export files dropped there.

Examples:
  # Serve with defaults (in-memory store, port 8480)
  caselink serve

  # Serve with a config file
  caselink serve --config /etc/caselink/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("starting caselink",
		zap.String("backend", a.cfg.Storage.Backend),
		zap.String("host", a.cfg.Server.Host),
		zap.Int("port", a.cfg.Server.Port),
	)

	if dir := a.cfg.Importer.WatchDir; dir != "" {
		w, err := importer.New(dir, a.cfg.Importer.Debounce.Duration(), a.matcher, a.logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	}

	server, err := httpapi.NewServer(a.store, a.matcher, a.logger, &httpapi.Config{
		Host: a.cfg.Server.Host,
		Port: a.cfg.Server.Port,
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(), a.cfg.Server.ShutdownTimeout.Duration())
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	a.logger.Info("caselink stopped")
	return nil
}
