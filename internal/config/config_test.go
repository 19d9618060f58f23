package config

import (
	"testing"
	"time"
)

type mapEnv map[string]string

func (m mapEnv) Getenv(key string) string { return m[key] }

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 3000 {
		t.Fatalf("expected default port 3000, got %d", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("expected default gin mode release, got %q", cfg.GinMode)
	}
	if cfg.TypingTimeout != 7*time.Second {
		t.Fatalf("expected default typing timeout 7s, got %v", cfg.TypingTimeout)
	}
}

func TestLoadConfigFromEnv_MissingSecret(t *testing.T) {
	_, err := LoadConfigFromEnv(mapEnv{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoadConfigFromEnv_PortOverride(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", "PORT": "1234"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 1234 {
		t.Fatalf("expected port 1234, got %d", cfg.Port)
	}
}

func TestLoadConfigFromEnv_TypingTimeoutOverride(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", "TYPING_TIMEOUT_MS": "2500"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.TypingTimeout != 2500*time.Millisecond {
		t.Fatalf("expected 2500ms, got %v", cfg.TypingTimeout)
	}

	if _, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", "TYPING_TIMEOUT_MS": "0"}); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}

func TestLoadConfigFromEnv_StateFile(t *testing.T) {
	cfg, err := LoadConfigFromEnv(mapEnv{"MASTER_SECRET": "x", "STATE_FILE": "/tmp/state.json"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.StateFile != "/tmp/state.json" {
		t.Fatalf("unexpected state file: %q", cfg.StateFile)
	}
}
