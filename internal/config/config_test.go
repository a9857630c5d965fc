package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr == "" {
		t.Error("HTTPAddr default missing")
	}
	if cfg.AccessTTL() != time.Hour {
		t.Errorf("AccessTTL default: got %v", cfg.AccessTTL())
	}
	if cfg.AttemptTTL() != 5*time.Minute {
		t.Errorf("AttemptTTL default: got %v", cfg.AttemptTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost default: got %d", cfg.BcryptCost)
	}
}

func TestLoadRejectsDevEndpointInProduction(t *testing.T) {
	t.Setenv("DEV_CODE_ENDPOINT", "true")
	t.Setenv("APP_ENV", "production")
	if _, err := Load(); err == nil {
		t.Fatal("want error for dev code endpoint in production")
	}
}

func TestLoadRejectsBadBcryptCost(t *testing.T) {
	t.Setenv("BCRYPT_COST", "99")
	if _, err := Load(); err == nil {
		t.Fatal("want error for out-of-range bcrypt cost")
	}
}

func TestTTLFallbacks(t *testing.T) {
	c := &Config{SignInCodeTTL: "garbage", MFAAttemptTTL: "-3m"}
	if c.CodeTTL() != 168*time.Hour {
		t.Errorf("CodeTTL fallback: got %v", c.CodeTTL())
	}
	if c.AttemptTTL() != 5*time.Minute {
		t.Errorf("AttemptTTL fallback: got %v", c.AttemptTTL())
	}
}

func TestKafkaBrokersList(t *testing.T) {
	c := &Config{KafkaBrokers: "a:9092, b:9092,,"}
	got := c.KafkaBrokersList()
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("KafkaBrokersList: got %v", got)
	}
	if (&Config{}).KafkaBrokersList() != nil {
		t.Error("empty brokers should return nil")
	}
}
