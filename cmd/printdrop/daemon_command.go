package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"printdrop/internal/config"
	"printdrop/internal/daemon"
	"printdrop/internal/history"
	"printdrop/internal/logging"
	"printdrop/internal/mover"
	"printdrop/internal/notifications"
	"printdrop/internal/pipeline"
	"printdrop/internal/printing"
	"printdrop/internal/queue"
	"printdrop/internal/readiness"
	"printdrop/internal/rules"
	"printdrop/internal/watcher"
)

func newDaemonCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the watch/archive/print daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := config.Load(*configFlag)
			if err != nil {
				return err
			}

			outputs := []string{"stdout"}
			if logPath := cfg.LogPath(); logPath != "" {
				outputs = append(outputs, logPath)
			}
			logger, err := logging.New(logging.Options{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				OutputPaths: outputs,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.Info("configuration loaded", logging.String("path", path))

			ruleSet, err := rules.Compile(cfg.Rules)
			if err != nil {
				return err
			}

			journal, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history store: %w", err)
			}
			defer journal.Close()

			notifier := notifications.NewService(cfg)
			spooler := printing.NewCUPSSpooler()
			poller := printing.NewPoller(
				spooler,
				logger,
				time.Duration(cfg.Printing.PollIntervalSeconds)*time.Second,
				time.Duration(cfg.Printing.PollTimeoutSeconds)*time.Second,
				cfg.Printing.StableTicks,
			)
			orchestrator := printing.NewOrchestrator(
				spooler,
				newStdinConfirmer(cfg),
				poller,
				notifier,
				logger,
				cfg.Printing.DefaultPrinter,
				time.Duration(cfg.Printing.SettleSeconds)*time.Second,
			)

			waiter := readiness.New(
				cfg.Archive.LockAttempts,
				time.Duration(cfg.Archive.LockIntervalMillis)*time.Millisecond,
			)
			fileMover := mover.New(
				cfg.Archive.MoveAttempts,
				time.Duration(cfg.Archive.MoveBackoffSeconds)*time.Second,
			)
			processor := pipeline.NewProcessor(waiter, fileMover, orchestrator, notifier, journal, logger)

			workQueue := queue.New()
			worker := pipeline.NewWorker(workQueue, processor, logger)
			watch := watcher.New(cfg.Paths.WatchDir, logger)

			d := daemon.New(cfg, ruleSet, workQueue, worker, watch, logger)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := d.Start(ctx); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			<-ctx.Done()
			logger.Info("shutting down")
			d.Stop()
			return nil
		},
	}
}
