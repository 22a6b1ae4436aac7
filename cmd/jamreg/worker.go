package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwalsh/jamreg/internal/notify"
	"github.com/mwalsh/jamreg/internal/queue"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume side-effect tasks from the broker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.AMQPURL == "" {
				return errors.New("the worker needs AMQP_URL; without a broker, serve processes tasks in-process")
			}

			dispatcher := queue.NewDispatcher(
				notify.NewConsoleNotifier(logger),
				notify.NewConsoleEntryRemover(logger),
				logger,
			)

			consumer, err := queue.NewAMQPConsumer(cfg.AMQPURL, cfg.TaskExchange, cfg.TaskQueue, dispatcher, logger)
			if err != nil {
				return fail(logger, "connecting consumer", err)
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := consumer.Run(ctx); err != nil {
				return fail(logger, "consumer stopped", err)
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	}
}
