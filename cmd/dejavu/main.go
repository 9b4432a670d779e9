package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"dejavu/internal/config"
	"dejavu/internal/logging"
	"dejavu/internal/memory"
	"dejavu/internal/plan"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string
	registry   string
	threshold  float64

	// Loaded configuration
	cfg *config.Config

	// Logger
	logger *zap.Logger

	// Exit code returned by main. check sets this on a positive match so
	// PersistentPostRun still flushes logs before the process exits.
	exitCode int
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dejavu",
	Short: "dejavu - rejected-plan memory and near-duplicate detection",
	Long: `dejavu fingerprints agent plans and remembers the ones that were
rejected, so a planner can answer "haven't we tried this before?"
without re-running the plan.

A fingerprint is a SHA-256 digest over the plan's goal, approach, and
ordered step descriptions. Everything else (IDs, timestamps, statuses,
unknown JSON fields) is ignored, so cosmetic edits keep the same digest
while a reordered or reworded plan gets a new one.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspace
		if ws == "" {
			ws, _ = os.Getwd()
		}

		path := configPath
		if path == "" {
			path = filepath.Join(ws, ".dejavu", "config.yaml")
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Flag overrides beat config file and environment
		if registry != "" {
			cfg.Memory.RegistryPath = registry
		}
		if cmd.Root().PersistentFlags().Changed("threshold") {
			cfg.Similarity.Threshold = threshold
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		// Category file logging; silent no-op unless logging.debug_mode is on
		if err := logging.Initialize(ws); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		logging.Boot("dejavu %s starting: cmd=%s", cfg.Version, cmd.Name())
		logging.BootDebug("flags: verbose=%v config=%q workspace=%q", verbose, configPath, workspace)
		logging.Config("using %s: threshold=%.2f registry=%s watch=%s",
			path, cfg.Similarity.Threshold, cfg.Memory.RegistryPath, cfg.Watch.Dir)
		logging.ConfigDebug("memory.max_records=%d similarity.parallel=%v shards=%d",
			cfg.Memory.MaxRecords, cfg.Similarity.Parallel, cfg.Similarity.Shards)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.dejavu/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&registry, "registry", "", "Rejected-plan registry file (overrides config)")
	rootCmd.PersistentFlags().Float64VarP(&threshold, "threshold", "t", 0.85, "Similarity threshold in [0,1] (overrides config)")

	// Add commands to root
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Post-run hooks are skipped on error, so flush category logs here.
		logging.BootError("dejavu failed: %v", err)
		logging.CloseAll()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// loadPlanFile reads and decodes a plan JSON document.
func loadPlanFile(path string) (*plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	p, err := plan.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// openStore loads the rejected-plan registry into memory.
func openStore() (*memory.InMemoryStore, error) {
	store, err := memory.LoadRegistry(cfg.Memory.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	if cfg.Memory.MaxRecords > 0 {
		store.SetLimit(cfg.Memory.MaxRecords)
	}
	return store, nil
}

// saveStore writes the registry back to disk.
func saveStore(store memory.Store) error {
	if err := memory.SaveRegistry(cfg.Memory.RegistryPath, store); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}

// findMatches runs the configured similarity search over the records.
// Large registries with parallel search enabled scan sharded; everything
// else scans sequentially.
func findMatches(ctx context.Context, fp plan.Fingerprint, records []memory.RejectedPlan) ([]memory.Match, error) {
	if cfg.Similarity.Parallel && len(records) >= cfg.Similarity.ParallelMinRecords {
		return memory.FindSimilarParallel(ctx, fp, records, cfg.Similarity.Threshold, cfg.Similarity.Shards)
	}
	return memory.FindSimilar(fp, records, cfg.Similarity.Threshold)
}

// truncateStr shortens a string for table display.
func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
