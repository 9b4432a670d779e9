package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// resetState clears package state between tests.
func resetState() {
	CloseAll()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	workspace = ""
	config = loggingConfig{}
	configLoaded = false
	logLevel = LevelInfo
}

func writeConfig(t *testing.T, workspace, content string) {
	t.Helper()
	configDir := filepath.Join(workspace, ".dejavu")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
}

func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
  categories:
    boot: true
    config: true
    fingerprint: true
    memory: true
    watch: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	defer resetState()

	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	categories := []Category{CategoryBoot, CategoryConfig, CategoryFingerprint, CategoryMemory, CategoryWatch}
	for _, cat := range categories {
		Get(cat).Info("test entry for %s", cat)
	}

	date := time.Now().Format("2006-01-02")
	for _, cat := range categories {
		logPath := filepath.Join(tempDir, ".dejavu", "logs", date+"_"+string(cat)+".log")
		data, err := os.ReadFile(logPath)
		if err != nil {
			t.Errorf("Expected log file for category %s: %v", cat, err)
			continue
		}
		if !strings.Contains(string(data), "test entry for "+string(cat)) {
			t.Errorf("Log file for %s missing entry", cat)
		}
	}
}

func TestProductionModeIsSilent(t *testing.T) {
	tempDir := t.TempDir()
	// No config file at all = production mode.
	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	if IsDebugMode() {
		t.Error("Expected debug mode to be disabled without config")
	}

	Memory("should not be written")
	Watch("should not be written")

	logsPath := filepath.Join(tempDir, ".dejavu", "logs")
	if _, err := os.Stat(logsPath); !os.IsNotExist(err) {
		t.Errorf("Expected no logs directory in production mode, stat err=%v", err)
	}
}

func TestCategoryFilter(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
  categories:
    memory: true
    watch: false
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	if !IsCategoryEnabled(CategoryMemory) {
		t.Error("memory category should be enabled")
	}
	if IsCategoryEnabled(CategoryWatch) {
		t.Error("watch category should be disabled")
	}
	// Unlisted categories default to enabled in debug mode.
	if !IsCategoryEnabled(CategoryFingerprint) {
		t.Error("unlisted category should default to enabled")
	}

	Watch("filtered out")
	date := time.Now().Format("2006-01-02")
	watchLog := filepath.Join(tempDir, ".dejavu", "logs", date+"_watch.log")
	if _, err := os.Stat(watchLog); !os.IsNotExist(err) {
		t.Errorf("Expected no watch log file, stat err=%v", err)
	}
}

func TestLevelFilter(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: warn
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	l := Get(CategoryMemory)
	l.Debug("debug suppressed")
	l.Info("info suppressed")
	l.Warn("warn written")
	l.Error("error written")

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(tempDir, ".dejavu", "logs", date+"_memory.log"))
	if err != nil {
		t.Fatalf("Failed to read memory log: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "debug suppressed") || strings.Contains(content, "info suppressed") {
		t.Error("Expected debug/info entries to be filtered at warn level")
	}
	if !strings.Contains(content, "warn written") || !strings.Contains(content, "error written") {
		t.Error("Expected warn/error entries to be written")
	}
}

func TestJSONFormat(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: info
  debug_mode: true
  json_format: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	Fingerprint("digest computed")

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(tempDir, ".dejavu", "logs", date+"_fingerprint.log"))
	if err != nil {
		t.Fatalf("Failed to read fingerprint log: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, `"cat":"fingerprint"`) || !strings.Contains(content, `"msg":"digest computed"`) {
		t.Errorf("Expected JSON entry, got: %s", content)
	}
}

func TestConcurrentLogging(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Get(CategoryMemory).Info("concurrent entry %d", n)
		}(i)
	}
	wg.Wait()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(tempDir, ".dejavu", "logs", date+"_memory.log"))
	if err != nil {
		t.Fatalf("Failed to read memory log: %v", err)
	}
	if got := strings.Count(string(data), "concurrent entry"); got != 20 {
		t.Errorf("Expected 20 entries, got %d", got)
	}
}

func TestTimer(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	timer := StartTimer(CategoryMemory, "similarity scan")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.Stop()

	if elapsed < 5*time.Millisecond {
		t.Errorf("Expected elapsed >= 5ms, got %v", elapsed)
	}

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(tempDir, ".dejavu", "logs", date+"_memory.log"))
	if err != nil {
		t.Fatalf("Failed to read memory log: %v", err)
	}
	if !strings.Contains(string(data), "similarity scan completed in") {
		t.Error("Expected timer entry in memory log")
	}
}

func TestTimerVariants(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	StartTimer(CategoryWatch, "sweep").StopWithInfo()

	slow := StartTimer(CategoryWatch, "slow check")
	time.Sleep(2 * time.Millisecond)
	slow.StopWithThreshold(time.Nanosecond)

	fast := StartTimer(CategoryWatch, "fast check")
	fast.StopWithThreshold(time.Hour)

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(tempDir, ".dejavu", "logs", date+"_watch.log"))
	if err != nil {
		t.Fatalf("Failed to read watch log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "sweep completed in") {
		t.Error("Expected info-level timer entry")
	}
	if !strings.Contains(content, "slow check took") {
		t.Error("Expected threshold warning for the slow operation")
	}
	if !strings.Contains(content, "fast check completed in") {
		t.Error("Expected debug entry for the fast operation")
	}
}

func TestReloadConfig(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: warn
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	Get(CategoryMemory).Info("before reload")

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)
	if err := ReloadConfig(); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}

	Get(CategoryMemory).Info("after reload")

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(tempDir, ".dejavu", "logs", date+"_memory.log"))
	if err != nil {
		t.Fatalf("Failed to read memory log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "before reload") {
		t.Error("Expected info entry to be filtered at warn level before reload")
	}
	if !strings.Contains(content, "after reload") {
		t.Error("Expected info entry after the reload lowered the level")
	}
}

func TestStructuredLogFields(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: info
  debug_mode: true
  json_format: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	Get(CategoryWatch).StructuredLog("info", "watcher stopped", map[string]interface{}{
		"plans_checked": 3,
		"matches_found": 1,
	})

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(tempDir, ".dejavu", "logs", date+"_watch.log"))
	if err != nil {
		t.Fatalf("Failed to read watch log: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"msg":"watcher stopped"`) || !strings.Contains(content, `"plans_checked":3`) {
		t.Errorf("Expected structured entry with fields, got: %s", content)
	}
}

func TestConvenienceFuncs(t *testing.T) {
	tempDir := t.TempDir()

	writeConfig(t, tempDir, `
logging:
  level: debug
  debug_mode: true
`)

	resetState()
	if err := Initialize(tempDir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer resetState()

	BootDebug("boot debug entry")
	BootError("boot error entry")
	Config("config entry")
	ConfigDebug("config debug entry")
	MemoryError("memory error entry")
	WatchError("watch error entry")

	date := time.Now().Format("2006-01-02")
	checks := map[string][]string{
		"boot":   {"boot debug entry", "boot error entry"},
		"config": {"config entry", "config debug entry"},
		"memory": {"memory error entry"},
		"watch":  {"watch error entry"},
	}
	for cat, wants := range checks {
		data, err := os.ReadFile(filepath.Join(tempDir, ".dejavu", "logs", date+"_"+cat+".log"))
		if err != nil {
			t.Fatalf("Failed to read %s log: %v", cat, err)
		}
		for _, want := range wants {
			if !strings.Contains(string(data), want) {
				t.Errorf("%s log missing %q", cat, want)
			}
		}
	}
}
