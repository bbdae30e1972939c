// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-harvester/internal/arxiv"
	"github.com/pdiddy/arxiv-harvester/internal/harvest"
	"github.com/pdiddy/arxiv-harvester/internal/notify"
	"github.com/pdiddy/arxiv-harvester/internal/store"
)

var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Run the scheduled harvest cycle (fetch, store, notify)",
	Long: `Harvest runs one fetch-store-notify cycle when it is due per the saved
schedule, or immediately with --force-run. New papers (absent from the
database by short ID) are stored and announced through the webhook.

Configuration persists in the state file between runs; flags overlay the
saved values. With --daemon the process stays up and checks the schedule
hourly until interrupted.`,
	RunE: runHarvestCmd,
}

func init() {
	harvestCmd.Flags().String("query", "", "search query")
	harvestCmd.Flags().String("categories", "", "comma-separated arXiv categories")
	harvestCmd.Flags().Int("max-results", 0, "maximum results per category")
	harvestCmd.Flags().String("webhook", "", "webhook URL for notifications")
	harvestCmd.Flags().String("state-file", "", "path to the run-state file")
	harvestCmd.Flags().String("schedule", "", "schedule type: daily, weekly, or monthly")
	harvestCmd.Flags().Bool("force-run", false, "run now regardless of schedule")
	harvestCmd.Flags().Bool("daemon", false, "keep running, checking the schedule hourly")
	harvestCmd.Flags().String("db-path", defaultDBPath, "path to the SQLite database")

	rootCmd.AddCommand(harvestCmd)
}

func runHarvestCmd(cmd *cobra.Command, args []string) error {
	stateFile := configString(cmd, "state-file")

	var state harvest.State
	if stateFile != "" {
		var err error
		if state, err = harvest.LoadState(stateFile); err != nil {
			return err
		}
	}

	// Flags overlay the loaded state.
	if q, _ := cmd.Flags().GetString("query"); q != "" {
		state.Query = q
	}
	if cats, _ := cmd.Flags().GetString("categories"); cats != "" {
		state.Categories = splitCategories(cats)
	}
	if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
		state.MaxResults = n
	}
	if schedule, _ := cmd.Flags().GetString("schedule"); schedule != "" {
		state.ScheduleType = schedule
	}

	// Webhook: flag beats state beats the secrets directory.
	if webhook, _ := cmd.Flags().GetString("webhook"); webhook != "" {
		state.Webhook = webhook
	}
	state.Webhook = secretDefault("slack-webhook-url", state.Webhook)

	if state.Query == "" {
		return fmt.Errorf("no query configured: pass --query or point --state-file at a saved state")
	}

	st, err := store.New(configString(cmd, "db-path"))
	if err != nil {
		return err
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	scheduler := harvest.New(
		arxiv.NewClient(),
		st,
		notify.New(state.Webhook),
		harvest.WithState(state),
		harvest.WithStateFile(stateFile),
		harvest.WithLogger(logger),
	)

	if daemonMode, _ := cmd.Flags().GetBool("daemon"); daemonMode {
		return runDaemon(cmd.Context(), scheduler, logger)
	}

	force, _ := cmd.Flags().GetBool("force-run")
	if !force && !scheduler.IsDue() {
		fmt.Println("Harvest not due yet; use --force-run to run anyway.")
		return nil
	}

	completed, err := scheduler.RunHarvest(cmd.Context())
	if err != nil {
		return err
	}
	if !completed {
		return fmt.Errorf("harvest cycle did not complete")
	}
	fmt.Println("Harvest cycle completed.")
	return nil
}

// runDaemon blocks until SIGINT or SIGTERM, running a cycle at startup
// if one is already due and then on the hourly cron check.
func runDaemon(ctx context.Context, scheduler *harvest.Scheduler, logger *slog.Logger) error {
	if scheduler.IsDue() {
		if _, err := scheduler.RunHarvest(ctx); err != nil {
			logger.Error("startup harvest cycle aborted", "error", err)
		}
	}

	daemon := harvest.NewDaemon(scheduler, logger)
	if err := daemon.Start(ctx); err != nil {
		return err
	}
	logger.Info("daemon started, checking schedule hourly")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	daemon.Stop()
	return nil
}

func splitCategories(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
