package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

func TestDefaultAppliesTables(t *testing.T) {
	cfg := Default()

	if cfg.Cache.DefaultTTL["pricing"] != 30*time.Minute {
		t.Errorf("pricing ttl: got %s", cfg.Cache.DefaultTTL["pricing"])
	}
	if cfg.Cache.CompressionAlgorithm != "gzip" || cfg.Cache.CompressionThreshold != 1024 {
		t.Errorf("compression defaults: got %s/%d", cfg.Cache.CompressionAlgorithm, cfg.Cache.CompressionThreshold)
	}
	if cfg.Pricing.DemandMultipliers[domain.DemandCritical] != 1.5 {
		t.Errorf("critical demand multiplier: got %.2f", cfg.Pricing.DemandMultipliers[domain.DemandCritical])
	}
	if cfg.Pricing.DayOfWeek[time.Saturday] != 1.25 {
		t.Errorf("saturday multiplier: got %.2f", cfg.Pricing.DayOfWeek[time.Saturday])
	}
	if cfg.Loyalty.TierThresholds[domain.TierGold] != 5000 {
		t.Errorf("gold threshold: got %d", cfg.Loyalty.TierThresholds[domain.TierGold])
	}
	if cfg.Loyalty.ExpiryMonths != 24 {
		t.Errorf("expiry months: got %d", cfg.Loyalty.ExpiryMonths)
	}
	if cfg.Hub.OfflineQueueCap != 1000 || cfg.Hub.ReplayAttempts != 3 {
		t.Errorf("hub defaults: got %d/%d", cfg.Hub.OfflineQueueCap, cfg.Hub.ReplayAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
cache:
  compression_algorithm: brotli
  compression_threshold: 2048
pricing:
  validity: 10m
loyalty:
  expiry_months: 12
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Cache.CompressionAlgorithm != "brotli" || cfg.Cache.CompressionThreshold != 2048 {
		t.Errorf("overrides lost: %s/%d", cfg.Cache.CompressionAlgorithm, cfg.Cache.CompressionThreshold)
	}
	if cfg.Pricing.Validity != 10*time.Minute {
		t.Errorf("validity: got %s", cfg.Pricing.Validity)
	}
	if cfg.Loyalty.ExpiryMonths != 12 {
		t.Errorf("expiry months: got %d", cfg.Loyalty.ExpiryMonths)
	}
	// Untouched sections still get defaults.
	if cfg.Workers.CacheSweep != 5*time.Minute {
		t.Errorf("cache sweep default missing: %s", cfg.Workers.CacheSweep)
	}
	if cfg.Pricing.DemandMultipliers[domain.DemandHigh] != 1.15 {
		t.Errorf("demand table default missing")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative cache ttl", func(c *Config) {
			c.Cache.DefaultTTL["pricing"] = -time.Second
		}},
		{"unknown compression algorithm", func(c *Config) {
			c.Cache.CompressionAlgorithm = "zstd"
		}},
		{"occupancy threshold above one", func(c *Config) {
			c.Pricing.OccupancyThresholds[domain.DemandHigh] = 1.5
		}},
		{"empty occupancy thresholds", func(c *Config) {
			c.Pricing.OccupancyThresholds = map[domain.DemandLevel]float64{}
		}},
		{"price floor above one", func(c *Config) {
			c.Pricing.MinPriceFloor = 1.5
		}},
		{"missing tier threshold", func(c *Config) {
			delete(c.Loyalty.TierThresholds, domain.TierPlatinum)
		}},
		{"non-increasing tier thresholds", func(c *Config) {
			c.Loyalty.TierThresholds[domain.TierGold] = 1000
		}},
		{"non-positive queue cap", func(c *Config) {
			c.Hub.OfflineQueueCap = -1
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "s3cret")
	// Register cleanup through t.Setenv, then clear so the default applies.
	t.Setenv("REDIS_ADDR", "ignored")
	os.Unsetenv("REDIS_ADDR")
	t.Setenv("DEFAULT_CURRENCY", "ignored")
	os.Unsetenv("DEFAULT_CURRENCY")
	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("load env failed: %v", err)
	}
	if env.AuthSecret != "s3cret" {
		t.Errorf("auth secret: got %q", env.AuthSecret)
	}
	if env.RedisAddr != "localhost:6379" {
		t.Errorf("redis addr default: got %q", env.RedisAddr)
	}
	if env.DefaultCurrency != "EUR" {
		t.Errorf("currency default: got %q", env.DefaultCurrency)
	}
}
