package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"analytics_framework/internal/analytics"
	"analytics_framework/internal/app"
	"analytics_framework/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "analytics-framework",
	Short: "Chat analytics service measuring time saved by AI assistance",
	Long: `analytics-framework ingests exported chat transcripts, estimates how long
each task would have taken manually, and aggregates per-day time-saved
statistics behind a small HTTP API.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server, file watcher, and daily scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Run(ctx)
	},
}

var runDate string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute one batch analysis run and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		target := runDate
		if target == "" {
			target = time.Now().UTC().AddDate(0, 0, -1).Format(analytics.DateLayout)
		}
		if _, err := time.Parse(analytics.DateLayout, target); err != nil {
			return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", target)
		}

		result, err := a.RunOnce(cmd.Context(), target)
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Ingest every chat export already present in the watch dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Backfill(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&runDate, "date", "", "target date YYYY-MM-DD (default: yesterday UTC)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(backfillCmd)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
