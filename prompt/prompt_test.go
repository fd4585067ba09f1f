package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"tray-translate-llm/config"
)

func TestLoadVerbatim(t *testing.T) {
	// Content with leading/trailing whitespace and newlines must survive untouched.
	content := "  Translate into French.\n\nKeep tables.\n"
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write prompt file: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != content {
		t.Errorf("Expected prompt to be loaded verbatim, got %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Error("Expected error for missing prompt file")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("Failed to write prompt file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for empty prompt file")
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	cfg := &config.Config{PromptPath: filepath.Join(t.TempDir(), "missing.txt")}
	if got := Resolve(cfg); got != Default {
		t.Errorf("Expected built-in default prompt, got %q", got)
	}
}

func TestResolvePrefersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	if err := os.WriteFile(path, []byte("custom instruction"), 0644); err != nil {
		t.Fatalf("Failed to write prompt file: %v", err)
	}
	cfg := &config.Config{PromptPath: path}
	if got := Resolve(cfg); got != "custom instruction" {
		t.Errorf("Expected file prompt, got %q", got)
	}
}
