package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dejavu/internal/logging"
)

const registryVersion = "1.0.0"

// Registry is the on-disk form of the rejected-plan memory. The core
// search never touches disk; loading and saving the registry is the
// CLI collaborator's job.
type Registry struct {
	Version   string         `json:"version"`
	CreatedAt string         `json:"created_at"`
	Records   []RejectedPlan `json:"records"`
}

// LoadRegistry reads a registry file into a fresh store. A missing file
// yields an empty store.
func LoadRegistry(path string) (*InMemoryStore, error) {
	store := NewInMemoryStore()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.MemoryDebug("No registry at %s, starting empty", path)
			return store, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		logging.MemoryError("Unreadable registry %s: %v", path, err)
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}

	for _, rec := range reg.Records {
		if _, err := store.Remember(rec); err != nil {
			logging.MemoryWarn("Skipping registry record %s: %v", rec.ID, err)
		}
	}

	logging.Memory("Loaded %d record(s) from %s (version %s)", store.Len(), path, reg.Version)
	return store, nil
}

// SaveRegistry writes the store's records to path, creating parent
// directories as needed. The created_at of an existing registry file is
// preserved.
func SaveRegistry(path string, store Store) error {
	if path == "" {
		return fmt.Errorf("registry path is empty")
	}

	reg := Registry{
		Version:   registryVersion,
		CreatedAt: time.Now().Format(time.RFC3339),
		Records:   store.Records(),
	}

	// Keep the original creation stamp across rewrites.
	if data, err := os.ReadFile(path); err == nil {
		var existing Registry
		if json.Unmarshal(data, &existing) == nil && existing.CreatedAt != "" {
			reg.CreatedAt = existing.CreatedAt
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		logging.MemoryError("Failed to write registry %s: %v", path, err)
		return fmt.Errorf("write registry: %w", err)
	}

	logging.Memory("Saved %d record(s) to %s", len(reg.Records), path)
	return nil
}
