// Package main implements the fingerprint and compare commands.
package main

import (
	"fmt"

	"dejavu/internal/logging"
	"dejavu/internal/plan"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// fingerprintCmd prints plan identity fingerprints
var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <plan.json>...",
	Short: "Print the identity fingerprint of one or more plan files",
	Long: `Computes the SHA-256 identity fingerprint of each plan file.

The digest covers goal, approach, and the ordered step descriptions.
Two plans that differ only in IDs, timestamps, step statuses, or other
decoration print the same fingerprint.

Example:
  dejavu fingerprint plans/retry.json
  dejavu fingerprint plans/*.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFingerprint,
}

var compareRaw bool

// compareCmd scores two plans against each other
var compareCmd = &cobra.Command{
	Use:   "compare <a.json> <b.json>",
	Short: "Score the similarity of two plans",
	Long: `Fingerprints both plan files and prints their similarity score in [0,1].
1.0 means identical fingerprints; scores decay toward 0 as digest bits
disagree.

With --raw the arguments are treated as fingerprint strings instead of
plan files, which lets you compare digests captured elsewhere.

Example:
  dejavu compare plans/a.json plans/b.json
  dejavu compare --raw 3f5a... 3f5b...`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().BoolVar(&compareRaw, "raw", false, "Treat arguments as fingerprint strings, not plan files")
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	for _, path := range args {
		p, err := loadPlanFile(path)
		if err != nil {
			return err
		}
		fp, err := p.Fingerprint()
		if err != nil {
			return fmt.Errorf("fingerprint failed for %s: %w", path, err)
		}

		logger.Debug("fingerprinted plan",
			zap.String("file", path),
			zap.String("fingerprint", string(fp)))
		logging.FingerprintDebug("fingerprint %s <- %s", fp.Short(), path)

		if len(args) == 1 {
			fmt.Println(fp)
		} else {
			fmt.Printf("%s  %s\n", fp, path)
		}
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	var fpA, fpB plan.Fingerprint

	if compareRaw {
		fpA, fpB = plan.Fingerprint(args[0]), plan.Fingerprint(args[1])
	} else {
		a, err := loadPlanFile(args[0])
		if err != nil {
			return err
		}
		b, err := loadPlanFile(args[1])
		if err != nil {
			return err
		}
		if fpA, err = a.Fingerprint(); err != nil {
			return fmt.Errorf("fingerprint failed for %s: %w", args[0], err)
		}
		if fpB, err = b.Fingerprint(); err != nil {
			return fmt.Errorf("fingerprint failed for %s: %w", args[1], err)
		}
	}

	score, err := plan.Similarity(fpA, fpB)
	if err != nil {
		return fmt.Errorf("similarity failed: %w", err)
	}

	logger.Info("plans compared",
		zap.String("a", fpA.Short()),
		zap.String("b", fpB.Short()),
		zap.Float64("score", score))

	fmt.Printf("a: %s\n", fpA)
	fmt.Printf("b: %s\n", fpB)
	fmt.Printf("similarity: %.4f\n", score)
	if score >= cfg.Similarity.Threshold {
		fmt.Printf("⚠️  at or above threshold %.2f - counts as a near-duplicate\n", cfg.Similarity.Threshold)
	} else {
		fmt.Printf("✅ below threshold %.2f\n", cfg.Similarity.Threshold)
	}
	return nil
}
