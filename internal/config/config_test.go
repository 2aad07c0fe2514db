package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ServerPort != 8321 {
		t.Errorf("Expected default port 8321, got %d", cfg.ServerPort)
	}
	if cfg.LLMBaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("Unexpected default LLM base URL: %s", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "google/gemini-2.0-flash-001" {
		t.Errorf("Unexpected default model: %s", cfg.LLMModel)
	}
	if cfg.ExtractConcurrency != 4 {
		t.Errorf("Expected default concurrency 4, got %d", cfg.ExtractConcurrency)
	}
	if cfg.ConvertKeepOther {
		t.Error("ConvertKeepOther must default to false")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TEXTKIT_PORT", "9000")
	t.Setenv("TEXTKIT_LLM_MODEL", "test/model")
	t.Setenv("TEXTKIT_CONVERT_KEEP_OTHER", "true")

	cfg := LoadConfig()

	if cfg.ServerPort != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.ServerPort)
	}
	if cfg.LLMModel != "test/model" {
		t.Errorf("Expected model test/model, got %s", cfg.LLMModel)
	}
	if !cfg.ConvertKeepOther {
		t.Error("Expected ConvertKeepOther true")
	}
}

func TestOpenRouterKeyFallback(t *testing.T) {
	t.Setenv("TEXTKIT_LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "sk-fallback")

	cfg := LoadConfig()

	if cfg.LLMAPIKey != "sk-fallback" {
		t.Errorf("Expected OPENROUTER_API_KEY fallback, got %q", cfg.LLMAPIKey)
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server_port: 7777\nllm_model: some/model\nconvert_keep_other: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.ServerPort != 7777 {
		t.Errorf("Expected port 7777, got %d", cfg.ServerPort)
	}
	if cfg.LLMModel != "some/model" {
		t.Errorf("Expected model some/model, got %s", cfg.LLMModel)
	}
	if !cfg.ConvertKeepOther {
		t.Error("Expected ConvertKeepOther true")
	}
	// Defaults fill the gaps
	if cfg.ExtractConcurrency != 4 {
		t.Errorf("Expected default concurrency 4, got %d", cfg.ExtractConcurrency)
	}
}

func TestLoadFromFileUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if _, err := os.Stat(cfg.DataDir); err != nil {
		t.Errorf("Data dir not created: %v", err)
	}

	cfg.ServerPort = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for invalid port")
	}

	cfg.ServerPort = 8321
	cfg.ExtractConcurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero concurrency")
	}
}
