package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reconcile continuously and print a summary after each cycle",
	Long: `Watch reconciles once at start and then on every poll interval until
interrupted. Each published snapshot is summarized on stdout. SIGHUP
requests an immediate refresh.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "poll interval (default from config, 30s)")
	watchCmd.Flags().Bool("full", false, "print the full case table after each cycle")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if interval, _ := cmd.Flags().GetDuration("interval"); interval > 0 {
		viper.Set("reconcile.poll_interval", interval)
	}
	full, _ := cmd.Flags().GetBool("full")
	verbose, _ := cmd.Flags().GetBool("verbose")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, verbose, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	snaps, cancel := a.orch.Subscribe()
	defer cancel()

	out := cmd.OutOrStdout()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				a.orch.Trigger()
			case snap, ok := <-snaps:
				if !ok {
					return
				}
				fmt.Fprintf(out, "[%s] ", snap.GeneratedAt.Local().Format(time.TimeOnly))
				if full {
					writeSnapshot(out, formatTable, snap)
					continue
				}
				writeSummary(out, snap)
			}
		}
	}()

	err = a.orch.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
