// Package main implements the watch command, a long-running mode that
// checks plan files as they land in a directory.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"dejavu/internal/memory"
	"dejavu/internal/plan"
	"dejavu/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCmd watches a directory of plan files
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and check every plan file against memory",
	Long: `Watches a directory for *.json plan files and checks each one against
the rejected-plan registry after its writes settle. New and modified
plans are fingerprinted and scored; matches print as they are found.

The directory defaults to watch.dir from the config. The registry is
loaded once at startup; remember/forget runs from other terminals are
not picked up until restart.

Example:
  dejavu watch
  dejavu watch build/plans --threshold 0.9`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	dir := cfg.Watch.Dir
	if len(args) > 0 {
		dir = args[0]
	}

	handler := func(path string, p *plan.Plan, fp plan.Fingerprint, matches []memory.Match) {
		if len(matches) == 0 {
			fmt.Printf("✅ %s  %s\n", fp.Short(), filepath.Base(path))
			return
		}
		fmt.Printf("⚠️  %s  %s resembles %d rejected plan(s):\n",
			fp.Short(), filepath.Base(path), len(matches))
		for _, m := range matches {
			reason := m.Record.Reason
			if reason == "" {
				reason = "(no reason recorded)"
			}
			fmt.Printf("    %.4f  %s  %s\n", m.Score, m.Record.Fingerprint.Short(), truncateStr(reason, 40))
		}
	}

	pw, err := watch.NewPlanWatcher(dir, store, cfg.Similarity.Threshold, handler)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	pw.SetDebounce(cfg.GetDebounce())

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pw.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	logger.Info("watching plan directory",
		zap.String("dir", dir),
		zap.Float64("threshold", cfg.Similarity.Threshold),
		zap.Int("records", store.Len()))

	fmt.Printf("👀 Watching %s (threshold %.2f, %d remembered plan(s))\n",
		dir, cfg.Similarity.Threshold, store.Len())
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println(strings.Repeat("─", 60))

	// Cover plans that were written before the watcher came up.
	if err := pw.CheckAll(); err != nil {
		logger.Warn("initial sweep failed", zap.Error(err))
	}

	<-ctx.Done()

	fmt.Println("\nShutting down...")
	pw.Stop()

	stats := pw.GetStats()
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("checked: %d  matches: %d  created: %d  modified: %d  errors: %d\n",
		stats.PlansChecked, stats.MatchesFound, stats.FilesCreated, stats.FilesModified, stats.Errors)
	return nil
}
