package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kirana/config"
	"github.com/shashiranjanraj/kirana/internal/kernel"
	"github.com/shashiranjanraj/kirana/pkg/schedule"
)

var queueWorkersFlag int

// kirana queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start the queue workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, release, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer release()

		if config.QueueDriver() != "redis" {
			return errors.New("queue:work needs QUEUE_DRIVER=redis; the memory queue runs inside serve")
		}

		workers := queueWorkersFlag
		if workers < 1 {
			workers = 5
		}

		fmt.Printf("Queue worker started (%d workers). Press Ctrl+C to stop.\n", workers)
		app.Queue.StartWorkers(ctx, workers)

		<-ctx.Done()
		fmt.Println("Queue worker stopped.")
		return nil
	},
}

// kirana schedule:run
var scheduleRunCmd = &cobra.Command{
	Use:   "schedule:run",
	Short: "Start the task scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, release, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer release()

		s := schedule.New()
		if err := app.Schedule(s); err != nil {
			return err
		}
		fmt.Println("Registered scheduled tasks:")
		for _, t := range s.List() {
			fmt.Println("  •", t)
		}

		fmt.Println("Scheduler started. Press Ctrl+C to stop.")
		s.Start(ctx)

		<-ctx.Done()
		s.Wait()
		fmt.Println("Scheduler stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 5, "Number of concurrent workers")
}
