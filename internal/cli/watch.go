package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ogulcanaydogan/fare-guardian/internal/schedule"
	"github.com/ogulcanaydogan/fare-guardian/internal/server"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Check alerts on a schedule and serve change-price links",
	Long: `Watch runs a batch check on the configured cron schedule and serves the
change-price links embedded in notifications, plus /healthz and /metrics,
until interrupted.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Bool("now", false, "Run one batch immediately on start")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The server keeps its own store handle; every batch opens and closes another.
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	batch := func(ctx context.Context) {
		if _, err := runBatch(ctx, cfg, logger); err != nil {
			logger.Error("scheduled batch failed", "error", err)
		}
	}

	sched, err := schedule.New(cfg.Schedule.Cron, cfg.Schedule.Timezone, batch, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      server.NewServer(store, logger).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "listen", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	sched.Start()
	logger.Info("next batch scheduled", "at", sched.Next())

	var immediate sync.WaitGroup
	if now, _ := cmd.Flags().GetBool("now"); now {
		immediate.Add(1)
		go func() {
			defer immediate.Done()
			sched.RunNow()
		}()
	}

	var runErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	immediate.Wait()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	return runErr
}
