package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()

	validConfig := `
provider: google
model: gemini-3-pro-preview
temperature: 0.8
google_key: test-key
data_dir: /tmp/nexus-test
mirror:
  enabled: true
  addr: ":9090"
`

	validFile := filepath.Join(tmpDir, "valid.yaml")
	if err := os.WriteFile(validFile, []byte(validConfig), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cfg, err := Load(validFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "google" {
		t.Errorf("expected provider 'google', got %s", cfg.Provider)
	}
	if cfg.Model != "gemini-3-pro-preview" {
		t.Errorf("expected model 'gemini-3-pro-preview', got %s", cfg.Model)
	}
	if cfg.Temperature != 0.8 {
		t.Errorf("expected temperature 0.8, got %v", cfg.Temperature)
	}
	if !cfg.Mirror.Enabled || cfg.Mirror.Addr != ":9090" {
		t.Errorf("unexpected mirror config: %+v", cfg.Mirror)
	}
	if cfg.SnapshotDir() != "/tmp/nexus-test/sessions" {
		t.Errorf("unexpected snapshot dir: %s", cfg.SnapshotDir())
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("expected default provider 'anthropic', got %s", cfg.Provider)
	}
	if cfg.Temperature != 1.0 {
		t.Errorf("expected default temperature 1.0, got %v", cfg.Temperature)
	}
	if cfg.AnthropicKey != "env-key" {
		t.Errorf("expected key from environment, got %q", cfg.AnthropicKey)
	}
	if cfg.DataDir == "" {
		t.Error("expected a default data dir")
	}
	if cfg.Autosave.Schedule != "@every 5m" {
		t.Errorf("unexpected autosave schedule: %s", cfg.Autosave.Schedule)
	}
}

func TestLoad_ConfigKeyWinsOverEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "env-key")
	tmpDir := t.TempDir()

	file := filepath.Join(tmpDir, "cfg.yaml")
	if err := os.WriteFile(file, []byte("google_key: file-key\n"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GoogleKey != "file-key" {
		t.Errorf("expected file key to win, got %q", cfg.GoogleKey)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(file, []byte("provider: [unclosed"), 0600); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if _, err := Load(file); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{
		Provider:    "google",
		Model:       "gemini-2.5-flash",
		Temperature: 0.4,
		DataDir:     "/tmp/nexus-test",
	}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Provider != "google" || loaded.Model != "gemini-2.5-flash" {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{Provider: "anthropic", AnthropicKey: "k"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg = &Config{Provider: "cohere"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestValidate_MissingKeyIsNotAStartupError(t *testing.T) {
	// Credentials are checked on first use, not here; a keyless config
	// must pass so the caller can prompt for the key instead.
	cfg := &Config{Provider: "google"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestKey(t *testing.T) {
	cfg := &Config{AnthropicKey: "a", GoogleKey: "g"}
	if cfg.Key("anthropic") != "a" || cfg.Key("google") != "g" {
		t.Error("key lookup mismatch")
	}
	if cfg.Key("cohere") != "" {
		t.Error("expected empty key for unknown provider")
	}
}

func TestSetKey(t *testing.T) {
	cfg := &Config{}
	cfg.SetKey("anthropic", "a")
	cfg.SetKey("google", "g")
	cfg.SetKey("cohere", "ignored")
	if cfg.AnthropicKey != "a" || cfg.GoogleKey != "g" {
		t.Errorf("unexpected keys: %+v", cfg)
	}
}
