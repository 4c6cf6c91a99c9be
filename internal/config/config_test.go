//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("auth:\n  api_key: k\n  jwt_secret: s\n"), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Batch.Concurrency != 6 {
		t.Errorf("expected default concurrency 6, got %d", cfg.Batch.Concurrency)
	}
	if cfg.AI.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.AI.MaxAttempts)
	}
	if cfg.AI.Groq.BaseDelay <= cfg.AI.Gemini.BaseDelay {
		t.Errorf("groq should back off slower than gemini: %v vs %v", cfg.AI.Groq.BaseDelay, cfg.AI.Gemini.BaseDelay)
	}
	if cfg.AI.Mistral.BaseURL != "https://api.mistral.ai/v1" {
		t.Errorf("unexpected mistral base url %q", cfg.AI.Mistral.BaseURL)
	}
	if cfg.Auth.SessionTTL != 12*time.Hour {
		t.Errorf("unexpected session ttl %v", cfg.Auth.SessionTTL)
	}
}

func TestParse_RequiresAuthOutsideDev(t *testing.T) {
	if _, err := Parse([]byte("{}"), false); err == nil {
		t.Fatal("expected error without auth settings")
	}
	if _, err := Parse([]byte("{}"), true); err != nil {
		t.Fatalf("dev mode should not require auth: %v", err)
	}
}

func TestParse_RejectsUnknownProvider(t *testing.T) {
	if _, err := Parse([]byte("ai:\n  default_provider: openai\n"), true); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	body := "batch:\n  concurrency: 3\nai:\n  gemini:\n    keys: [a, b]\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(p, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Batch.Concurrency != 3 || len(cfg.AI.Gemini.Keys) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Runtime.Dev {
		t.Error("expected dev runtime flag")
	}
}

func TestParse_EncryptionKeyLength(t *testing.T) {
	if _, err := Parse([]byte("security:\n  encryption_key: short\n"), true); err == nil {
		t.Fatal("expected key length error")
	}
	cfg, err := Parse([]byte("security:\n  encryption_key: 0123456789abcdef\n"), true)
	if err != nil || cfg.Security.EncryptionKey == "" {
		t.Fatalf("16-byte key should be accepted: %v", err)
	}
}
