package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/kirana/config"
	"github.com/shashiranjanraj/kirana/internal/kernel"
	"github.com/shashiranjanraj/kirana/internal/server"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/queue"
	"github.com/shashiranjanraj/kirana/pkg/schedule"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

var serveWorkersFlag int

// kirana serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, release, err := kernel.Boot(ctx)
		if err != nil {
			return err
		}
		defer release()

		app.Start(ctx)

		// With the memory driver jobs only exist in this process.
		if config.QueueDriver() != "redis" {
			app.Queue.StartWorkers(ctx, serveWorkersFlag)
		}

		sched := schedule.New()
		if err := app.Schedule(sched); err != nil {
			return err
		}
		sched.Start(ctx)

		logger.Info("kirana: starting", "env", config.AppEnv(), "port", config.AppPort(), "driver", config.DatabaseDriver())
		err = server.Run(ctx, server.DefaultConfig(config.AppPort()), app.Handler(), app.Shutdown)
		sched.Wait()
		return err
	},
}

// kirana route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List every registered route",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := kernel.New(store.NewMemory(), kv.NewMemory(), queue.NewManager(queue.NewMemoryDriver()), kernel.Options{})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range app.Router().Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&serveWorkersFlag, "workers", "w", 2, "In-process queue workers when QUEUE_DRIVER is memory")
}
