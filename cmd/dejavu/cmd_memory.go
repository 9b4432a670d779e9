// Package main implements the memory management commands: remember, list,
// and forget.
package main

import (
	"fmt"
	"strings"

	"dejavu/internal/memory"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rememberReason string

// rememberCmd records a plan as rejected
var rememberCmd = &cobra.Command{
	Use:   "remember <plan.json>",
	Short: "Record a plan as rejected",
	Long: `Fingerprints the plan and appends it to the rejected-plan registry.
Future checks will flag plans whose fingerprints resemble it.

Example:
  dejavu remember plans/retry.json --reason "schema already exists"`,
	Args: cobra.ExactArgs(1),
	RunE: runRemember,
}

// listCmd lists remembered rejected plans
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered rejected plans",
	RunE:  runList,
}

var forgetAll bool

// forgetCmd removes records from the rejected-plan memory
var forgetCmd = &cobra.Command{
	Use:   "forget <record-id>",
	Short: "Remove a record from the rejected-plan memory",
	Long: `Removes a record by its ID (shown by list). With --all the whole
registry is cleared.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runForget,
}

func init() {
	rememberCmd.Flags().StringVar(&rememberReason, "reason", "", "Why the plan was rejected")
	forgetCmd.Flags().BoolVar(&forgetAll, "all", false, "Clear the whole registry")
}

func runRemember(cmd *cobra.Command, args []string) error {
	p, err := loadPlanFile(args[0])
	if err != nil {
		return err
	}
	// Plan documents may omit the id; remembered plans always carry one.
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	fp, err := p.Fingerprint()
	if err != nil {
		return fmt.Errorf("fingerprint failed: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	id, err := store.Remember(memory.RejectedPlan{
		Plan:        *p,
		Fingerprint: fp,
		Reason:      rememberReason,
	})
	if err != nil {
		return fmt.Errorf("remember failed: %w", err)
	}
	if err := saveStore(store); err != nil {
		return err
	}

	logger.Info("plan remembered",
		zap.String("id", string(id)),
		zap.String("fingerprint", fp.Short()))

	fmt.Printf("🧠 Remembered rejected plan %s\n", id)
	fmt.Printf("   fingerprint: %s\n", fp)
	if rememberReason != "" {
		fmt.Printf("   reason:      %s\n", rememberReason)
	}
	fmt.Printf("   registry:    %s (%d record(s))\n", cfg.Memory.RegistryPath, store.Len())
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	records := store.Records()
	if len(records) == 0 {
		fmt.Println("No rejected plans remembered yet.")
		fmt.Println("Use: dejavu remember <plan.json> --reason \"...\"")
		return nil
	}

	fmt.Println("🧠 Rejected Plan Memory")
	fmt.Println(strings.Repeat("─", 60))
	for i, rec := range records {
		goal := rec.Plan.Goal
		if goal == "" {
			goal = "(no goal)"
		}
		fmt.Printf("%2d. %-36s  %s\n", i+1, rec.ID, rec.RejectedAt.Format("2006-01-02 15:04"))
		fmt.Printf("    %s  %s\n", rec.Fingerprint.Short(), truncateStr(goal, 44))
		if rec.Reason != "" {
			fmt.Printf("    reason: %s\n", truncateStr(rec.Reason, 50))
		}
	}
	fmt.Println(strings.Repeat("─", 60))
	fmt.Printf("%d record(s) in %s\n", len(records), cfg.Memory.RegistryPath)
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	if forgetAll {
		n := store.Len()
		store.Clear()
		if err := saveStore(store); err != nil {
			return err
		}
		logger.Info("registry cleared", zap.Int("removed", n))
		fmt.Printf("🧹 Cleared %d record(s) from %s\n", n, cfg.Memory.RegistryPath)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("record id required (or use --all)")
	}

	id := memory.RecordID(args[0])
	if !store.Forget(id) {
		return fmt.Errorf("no record with id %s", id)
	}
	if err := saveStore(store); err != nil {
		return err
	}

	logger.Info("record forgotten", zap.String("id", string(id)))
	fmt.Printf("🗑️  Forgot record %s (%d left)\n", id, store.Len())
	return nil
}
