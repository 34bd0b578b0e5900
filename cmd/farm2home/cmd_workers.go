package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/farm2home/farm2home/config"
	"github.com/farm2home/farm2home/internal/kernel"
	"github.com/farm2home/farm2home/internal/server"
)

var queueWorkersFlag int

// farm2home queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue workers without the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := server.Bootstrap(ctx)
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		workers := queueWorkersFlag
		if workers < 1 {
			workers = config.QueueWorkers()
		}

		kernel.RegisterListeners()
		fmt.Fprintf(cmd.OutOrStdout(), "Queue worker started (%d workers, %s driver). Press Ctrl+C to stop.\n", workers, config.QueueDriver())
		app.Queue.StartWorkers(ctx, workers)

		<-ctx.Done()
		fmt.Fprintln(cmd.OutOrStdout(), "Queue worker stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
}

// farm2home schedule:list
var scheduleListCmd = &cobra.Command{
	Use:   "schedule:list",
	Short: "List the periodic tasks the server runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Load(); err != nil {
			return err
		}
		tasks := server.NewScheduler(nil).List()
		if len(tasks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No scheduled tasks.")
			return nil
		}
		for _, t := range tasks {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}
