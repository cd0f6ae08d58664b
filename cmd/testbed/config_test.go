package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fault-testbed/middleware/session/domain"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxSessions != 50 || cfg.PerSessionBytes != 10<<20 {
		t.Fatalf("unexpected capacity defaults: %+v", cfg)
	}
	if cfg.sessionTTL() != 5*time.Second || cfg.admissionBudget() != time.Minute {
		t.Fatalf("unexpected timing defaults: ttl=%v budget=%v", cfg.sessionTTL(), cfg.admissionBudget())
	}
	if cfg.stickyWindow() != 10*time.Minute || cfg.metricsWindow() != 5*time.Second {
		t.Fatalf("unexpected window defaults: sticky=%v metrics=%v", cfg.stickyWindow(), cfg.metricsWindow())
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testbed.yaml")
	yaml := "max_sessions: 4\nsession_ttl_s: 0.5\nsticky_on_timeout_s: 0\noutcome_stats: none\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MAX_SESSIONS", "8")
	t.Setenv("SWEEP_INTERVAL", "250ms")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxSessions != 8 {
		t.Fatalf("env should override file, got max_sessions=%d", cfg.MaxSessions)
	}
	if cfg.sessionTTL() != 500*time.Millisecond {
		t.Fatalf("expected ttl from file, got %v", cfg.sessionTTL())
	}
	if cfg.stickyWindow() != 0 {
		t.Fatalf("expected sticky disabled, got %v", cfg.stickyWindow())
	}
	if cfg.SweepInterval != 250*time.Millisecond {
		t.Fatalf("expected sweep interval from env, got %v", cfg.SweepInterval)
	}
	if cfg.OutcomeStats != "none" {
		t.Fatalf("expected outcome_stats from file, got %q", cfg.OutcomeStats)
	}
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	t.Setenv("MAX_SESSIONS", "many")
	t.Setenv("LOG_SYNC", "sometimes")

	_, err := loadConfig("")
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*config){
		"zero capacity":    func(c *config) { c.MaxSessions = 0 },
		"negative budget":  func(c *config) { c.AppQueueTimeoutS = -1 },
		"zero ttl":         func(c *config) { c.SessionTTLS = 0 },
		"negative sticky":  func(c *config) { c.StickyOnTimeoutS = -1 },
		"zero sweep":       func(c *config) { c.SweepInterval = 0 },
		"relative vehicle": func(c *config) { c.VehicleURL = "vehicle:8081" },
		"redis no addr":    func(c *config) { c.OutcomeStats = "redis" },
		"unknown stats":    func(c *config) { c.OutcomeStats = "sqlite" },
	}
	for name, mutate := range cases {
		cfg := defaultConfig()
		mutate(&cfg)
		if err := cfg.validate(); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}

	cfg := defaultConfig()
	cfg.AppQueueTimeoutS = 0
	cfg.VehicleURL = "http://localhost:8081"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}
