package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/transit-alert-push/internal/daemon"
	"github.com/ogulcanaydogan/transit-alert-push/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the feed and dispatch pushes on a fixed interval",
	RunE:  runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("listen", "l", "", "Status server listen address (default from config, empty disables)")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := initApp(ctx, cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	d := daemon.New(a.runner, cfg.Schedule.Interval, cfg.Location(), logger)

	var srv *http.Server
	errCh := make(chan error, 1)
	if cfg.Server.Listen != "" {
		srv = &http.Server{
			Addr:         cfg.Server.Listen,
			Handler:      server.NewServer(d, a.store, logger).Handler(),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			logger.Info("status server started", "listen", cfg.Server.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	watchShutdown(ctx, cancel, quit, errCh, logger)

	fmt.Fprintf(os.Stderr, "transitpush polling %s every %s\n", cfg.Feed.URL, cfg.Schedule.Interval)
	if err := d.Run(ctx); err != nil {
		return err
	}

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}
	return nil
}

// watchShutdown cancels the run on a signal or a status server failure. The
// watcher exits when ctx ends first; the returned channel closes on exit.
func watchShutdown(ctx context.Context, cancel context.CancelFunc, quit <-chan os.Signal, errCh <-chan error, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
		case err := <-errCh:
			logger.Error("status server error", "error", err)
		case <-ctx.Done():
			return
		}
		cancel()
	}()
	return done
}
