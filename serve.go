package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/giygas/drugcompat/config"
	"github.com/giygas/drugcompat/data"
	"github.com/giygas/drugcompat/logging"
	"github.com/giygas/drugcompat/matrixparser"
	"github.com/giygas/drugcompat/scheduler"
	"github.com/giygas/drugcompat/server"
	"github.com/giygas/drugcompat/validation"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Regenerate the dataset on a schedule and serve it over HTTP",
		Long: `Serve reads its configuration from the environment (and .env).
See PORT, SOURCE_PATH, OUTPUT_DIR, REFRESH_TIMES and WATCH_SOURCE.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.InitLogger(cfg.LogDir, cfg.Env, cfg.LogLevel, cfg.LogRetentionWeeks, cfg.MaxLogFileSize)
	defer logging.Close()

	rules, err := loadRules(cfg.RulesPath)
	if err != nil {
		return err
	}

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	parser := matrixparser.NewCompatibilityParser(matrixparser.ParserConfig{
		SourcePath: cfg.SourcePath,
		Sheet:      cfg.SourceSheet,
		Version:    cfg.DatasetVersion,
	}, rules)

	sched := scheduler.NewScheduler(dataContainer, parser, validation.NewDataValidator(), scheduler.Options{
		RefreshTimes: cfg.RefreshTimes,
		OutputDir:    cfg.OutputDir,
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WatchSource {
		watcher, err := scheduler.NewWatcher(cfg.SourcePath, sched.Refresh, scheduler.DefaultDebounce)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	srv := server.NewServer(cfg, dataContainer)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
