package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dejavu/internal/plan"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_MissingFile(t *testing.T) {
	store, err := LoadRegistry(filepath.Join(t.TempDir(), "rejected.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestLoadRegistry_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejected.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadRegistry(path)
	assert.Error(t, err)
}

func TestRegistry_RoundTrip(t *testing.T) {
	p := plan.NewPlan("plan-1", "build api", "rest")
	p.AddStep("design schema")
	p.AddStep("implement endpoints")
	fp, err := p.Fingerprint()
	require.NoError(t, err)

	store := NewInMemoryStore()
	_, err = store.Remember(RejectedPlan{
		ID:          "rec-1",
		Plan:        *p,
		Fingerprint: fp,
		Reason:      "schema already exists",
		RejectedAt:  time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = store.Remember(RejectedPlan{
		ID:         "rec-2",
		Plan:       plan.Plan{Goal: "migrate db", Approach: "big bang"},
		RejectedAt: time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Nested path exercises directory creation on save.
	path := filepath.Join(t.TempDir(), "nested", "rejected.json")
	require.NoError(t, SaveRegistry(path, store))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	if diff := cmp.Diff(store.Records(), loaded.Records()); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveRegistry_PreservesCreatedAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rejected.json")
	store := NewInMemoryStore()
	require.NoError(t, SaveRegistry(path, store))

	first := readRegistryFile(t, path)
	require.NotEmpty(t, first.CreatedAt)
	assert.Equal(t, registryVersion, first.Version)

	_, err := store.Remember(RejectedPlan{ID: "rec-1"})
	require.NoError(t, err)
	require.NoError(t, SaveRegistry(path, store))

	second := readRegistryFile(t, path)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Len(t, second.Records, 1)
}

func TestSaveRegistry_EmptyPath(t *testing.T) {
	assert.Error(t, SaveRegistry("", NewInMemoryStore()))
}

func readRegistryFile(t *testing.T, path string) Registry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var reg Registry
	require.NoError(t, json.Unmarshal(data, &reg))
	return reg
}
