package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.HostingStrategy != StrategyChain {
		t.Errorf("strategy = %q, want %q", cfg.HostingStrategy, StrategyChain)
	}
	if cfg.CleanupGracePeriod != 5*time.Minute {
		t.Errorf("grace period = %v, want 5m", cfg.CleanupGracePeriod)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 70000")
	}
}

func TestValidateSelfHostNeedsBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostingStrategy = StrategySelfHost
	if err := cfg.Validate(); err == nil {
		t.Error("selfhost without public-base-url should fail validation")
	}

	cfg.PublicBaseURL = "https://faxbridge.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("selfhost with base URL should validate: %v", err)
	}
	if !cfg.SelfHostEnabled() {
		t.Error("SelfHostEnabled should report true")
	}
}

func TestValidateUnknownStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostingStrategy = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
