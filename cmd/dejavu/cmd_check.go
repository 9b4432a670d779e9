// Package main implements the check command, the scriptable gate against
// retrying a previously rejected plan.
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// checkCmd checks a plan against the rejected-plan memory
var checkCmd = &cobra.Command{
	Use:   "check <plan.json>",
	Short: "Check a plan against the rejected-plan memory",
	Long: `Fingerprints the plan and searches the registry for rejected plans with
similar fingerprints. Matches print sorted by score, best first.

Exits with status 1 when at least one match clears the similarity
threshold, so CI steps and agent loops can gate on it:

  dejavu check plans/retry.json || echo "tried before, skipping"`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	p, err := loadPlanFile(args[0])
	if err != nil {
		return err
	}
	fp, err := p.Fingerprint()
	if err != nil {
		return fmt.Errorf("fingerprint failed: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	records := store.Records()

	matches, err := findMatches(cmd.Context(), fp, records)
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}

	logger.Info("plan checked",
		zap.String("file", args[0]),
		zap.String("fingerprint", fp.Short()),
		zap.Int("records", len(records)),
		zap.Int("matches", len(matches)))

	if len(matches) == 0 {
		fmt.Printf("✅ No rejected plan resembles %s (checked %d record(s), threshold %.2f)\n",
			args[0], len(records), cfg.Similarity.Threshold)
		return nil
	}

	fmt.Printf("⚠️  %s resembles %d previously rejected plan(s):\n", args[0], len(matches))
	fmt.Println(strings.Repeat("─", 60))
	for i, m := range matches {
		fmt.Printf("%2d. score %.4f  %s  (%s)\n", i+1, m.Score, m.Record.Fingerprint.Short(), m.Record.ID)
		if goal := m.Record.Plan.Goal; goal != "" {
			fmt.Printf("    goal:   %s\n", truncateStr(goal, 52))
		}
		if m.Record.Reason != "" {
			fmt.Printf("    reason: %s\n", truncateStr(m.Record.Reason, 52))
		}
	}
	fmt.Println(strings.Repeat("─", 60))

	exitCode = 1
	return nil
}
