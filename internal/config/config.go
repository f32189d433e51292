// Package config loads and validates system configuration. Tunables come
// from a YAML file with defaults applied after unmarshal; process-level
// settings (endpoints, secrets) come from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/NawfalRAZOUK7/hotel-management-sub008/internal/domain"
)

// Env holds process-level settings read from the environment.
type Env struct {
	RedisAddr       string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string `envconfig:"REDIS_PASSWORD"`
	PostgresDSN     string `envconfig:"POSTGRES_DSN" default:"postgres://localhost:5432/hotelcore?sslmode=disable"`
	AuthSecret      string `envconfig:"AUTH_SECRET" required:"true"`
	CORSOrigin      string `envconfig:"CORS_ORIGIN" default:"*"`
	DefaultCurrency string `envconfig:"DEFAULT_CURRENCY" default:"EUR"`
	DefaultTimezone string `envconfig:"DEFAULT_TIMEZONE" default:"UTC"`
	OpsAddr         string `envconfig:"OPS_ADDR" default:":9090"`
	HubAddr         string `envconfig:"HUB_ADDR" default:":8081"`
	LogLevel        string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadEnv reads process-level settings from the environment.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return env, fmt.Errorf("failed to load environment config: %w", err)
	}
	return env, nil
}

// Cache holds cache subsystem defaults. Per-hotel CacheSettings override the
// TTL table through customTTL.
type Cache struct {
	DefaultTTL           map[string]time.Duration `yaml:"default_ttl"` // category -> ttl
	CompressionThreshold int                      `yaml:"compression_threshold"`
	CompressionAlgorithm string                   `yaml:"compression_algorithm"`
	DelayedInvalidation  time.Duration            `yaml:"delayed_invalidation"`
	OpTimeout            time.Duration            `yaml:"op_timeout"`
	LocalCleanupInterval time.Duration            `yaml:"local_cleanup_interval"`
	WarmingHorizonDays   int                      `yaml:"warming_horizon_days"`
}

// Pricing holds the default factor tables. All values mirror the documented
// defaults and may be overridden per hotel via YieldManagement.
type Pricing struct {
	DemandMultipliers   map[domain.DemandLevel]float64 `yaml:"demand_multipliers"`
	OccupancyThresholds map[domain.DemandLevel]float64 `yaml:"occupancy_thresholds"`
	DayOfWeek           map[time.Weekday]float64       `yaml:"day_of_week"`
	LoyaltyDiscounts    map[domain.Tier]float64        `yaml:"loyalty_discounts"`
	PromoCodes          map[string]float64             `yaml:"promo_codes"`
	Validity            time.Duration                  `yaml:"validity"`
	MinPriceFloor       float64                        `yaml:"min_price_floor"` // fraction of base
	MaxDailyPriceChange float64                        `yaml:"max_daily_price_change"`
	Deadline            time.Duration                  `yaml:"deadline"`
}

// Loyalty holds tier tables and expiry policy.
type Loyalty struct {
	TierThresholds  map[domain.Tier]int64   `yaml:"tier_thresholds"`
	TierMultipliers map[domain.Tier]float64 `yaml:"tier_multipliers"`
	ExpiryMonths    int                     `yaml:"expiry_months"`
	AlertMarksDays  []int                   `yaml:"alert_marks_days"`
	MinimumPoints   int64                   `yaml:"minimum_points"`
	UpgradeBonus    map[domain.Tier]int64   `yaml:"upgrade_bonus"`
}

// Hub holds realtime hub tuning.
type Hub struct {
	OfflineQueueCap  int           `yaml:"offline_queue_cap"`
	OfflineQueueTTL  time.Duration `yaml:"offline_queue_ttl"`
	SendTimeout      time.Duration `yaml:"send_timeout"`
	ReplayAttempts   int           `yaml:"replay_attempts"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	WriteBuffer      int           `yaml:"write_buffer"`
	WatchExpiry      time.Duration `yaml:"watch_expiry"`
}

// Workers holds background job intervals.
type Workers struct {
	DemandRefresh     time.Duration `yaml:"demand_refresh"`
	CacheWarming      time.Duration `yaml:"cache_warming"`
	CompetitorRefresh time.Duration `yaml:"competitor_refresh"`
	CacheSweep        time.Duration `yaml:"cache_sweep"`
	MetricRollover    time.Duration `yaml:"metric_rollover"`
	LoyaltyExpiryScan time.Duration `yaml:"loyalty_expiry_scan"`
}

// Availability holds availability service tuning.
type Availability struct {
	Deadline     time.Duration `yaml:"deadline"`
	OccupancyTTL time.Duration `yaml:"occupancy_ttl"`
}

// Config is the root file configuration.
type Config struct {
	Cache        Cache        `yaml:"cache"`
	Pricing      Pricing      `yaml:"pricing"`
	Loyalty      Loyalty      `yaml:"loyalty"`
	Hub          Hub          `yaml:"hub"`
	Workers      Workers      `yaml:"workers"`
	Availability Availability `yaml:"availability"`
}

// Load reads the YAML config file, applies defaults, and validates. An empty
// path yields the pure-default configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the pure-default configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Cache.DefaultTTL == nil {
		c.Cache.DefaultTTL = map[string]time.Duration{
			"availability": 5 * time.Minute,
			"pricing":      30 * time.Minute,
			"demand":       15 * time.Minute,
			"occupancy":    2 * time.Minute,
			"hotelData":    1 * time.Hour,
			"analytics":    10 * time.Minute,
		}
	}
	if c.Cache.CompressionThreshold == 0 {
		c.Cache.CompressionThreshold = 1024
	}
	if c.Cache.CompressionAlgorithm == "" {
		c.Cache.CompressionAlgorithm = "gzip"
	}
	if c.Cache.DelayedInvalidation == 0 {
		c.Cache.DelayedInvalidation = 5 * time.Second
	}
	if c.Cache.OpTimeout == 0 {
		c.Cache.OpTimeout = 2 * time.Second
	}
	if c.Cache.LocalCleanupInterval == 0 {
		c.Cache.LocalCleanupInterval = time.Minute
	}
	if c.Cache.WarmingHorizonDays == 0 {
		c.Cache.WarmingHorizonDays = 7
	}

	if c.Pricing.DemandMultipliers == nil {
		c.Pricing.DemandMultipliers = map[domain.DemandLevel]float64{
			domain.DemandVeryLow:  0.7,
			domain.DemandLow:      0.85,
			domain.DemandModerate: 1.0,
			domain.DemandHigh:     1.15,
			domain.DemandVeryHigh: 1.3,
			domain.DemandCritical: 1.5,
		}
	}
	if c.Pricing.OccupancyThresholds == nil {
		c.Pricing.OccupancyThresholds = map[domain.DemandLevel]float64{
			domain.DemandVeryLow:  0.2,
			domain.DemandLow:      0.4,
			domain.DemandModerate: 0.6,
			domain.DemandHigh:     0.75,
			domain.DemandVeryHigh: 0.9,
			domain.DemandCritical: 0.97,
		}
	}
	if c.Pricing.DayOfWeek == nil {
		c.Pricing.DayOfWeek = map[time.Weekday]float64{
			time.Monday:    0.85,
			time.Tuesday:   0.85,
			time.Wednesday: 0.9,
			time.Thursday:  0.95,
			time.Friday:    1.15,
			time.Saturday:  1.25,
			time.Sunday:    0.9,
		}
	}
	if c.Pricing.LoyaltyDiscounts == nil {
		c.Pricing.LoyaltyDiscounts = map[domain.Tier]float64{
			domain.TierBronze:   1.0,
			domain.TierSilver:   0.98,
			domain.TierGold:     0.95,
			domain.TierPlatinum: 0.92,
			domain.TierDiamond:  0.9,
		}
	}
	if c.Pricing.PromoCodes == nil {
		c.Pricing.PromoCodes = map[string]float64{
			"EARLY20":  0.8,
			"SUMMER10": 0.9,
		}
	}
	if c.Pricing.Validity == 0 {
		c.Pricing.Validity = 30 * time.Minute
	}
	if c.Pricing.MinPriceFloor == 0 {
		c.Pricing.MinPriceFloor = 0.5
	}
	if c.Pricing.MaxDailyPriceChange == 0 {
		c.Pricing.MaxDailyPriceChange = 0.3
	}
	if c.Pricing.Deadline == 0 {
		c.Pricing.Deadline = 3 * time.Second
	}

	if c.Loyalty.TierThresholds == nil {
		c.Loyalty.TierThresholds = map[domain.Tier]int64{
			domain.TierBronze:   0,
			domain.TierSilver:   1000,
			domain.TierGold:     5000,
			domain.TierPlatinum: 15000,
			domain.TierDiamond:  50000,
		}
	}
	if c.Loyalty.TierMultipliers == nil {
		c.Loyalty.TierMultipliers = map[domain.Tier]float64{
			domain.TierBronze:   1.0,
			domain.TierSilver:   1.2,
			domain.TierGold:     1.5,
			domain.TierPlatinum: 2.0,
			domain.TierDiamond:  2.5,
		}
	}
	if c.Loyalty.ExpiryMonths == 0 {
		c.Loyalty.ExpiryMonths = 24
	}
	if c.Loyalty.AlertMarksDays == nil {
		c.Loyalty.AlertMarksDays = []int{90, 30, 7}
	}
	if c.Loyalty.MinimumPoints == 0 {
		c.Loyalty.MinimumPoints = 100
	}

	if c.Hub.OfflineQueueCap == 0 {
		c.Hub.OfflineQueueCap = 1000
	}
	if c.Hub.OfflineQueueTTL == 0 {
		c.Hub.OfflineQueueTTL = 24 * time.Hour
	}
	if c.Hub.SendTimeout == 0 {
		c.Hub.SendTimeout = 2 * time.Second
	}
	if c.Hub.ReplayAttempts == 0 {
		c.Hub.ReplayAttempts = 3
	}
	if c.Hub.SnapshotInterval == 0 {
		c.Hub.SnapshotInterval = time.Minute
	}
	if c.Hub.PingInterval == 0 {
		c.Hub.PingInterval = 30 * time.Second
	}
	if c.Hub.WriteBuffer == 0 {
		c.Hub.WriteBuffer = 256
	}
	if c.Hub.WatchExpiry == 0 {
		c.Hub.WatchExpiry = 30 * time.Minute
	}

	if c.Workers.DemandRefresh == 0 {
		c.Workers.DemandRefresh = 15 * time.Minute
	}
	if c.Workers.CacheWarming == 0 {
		c.Workers.CacheWarming = time.Hour
	}
	if c.Workers.CompetitorRefresh == 0 {
		c.Workers.CompetitorRefresh = time.Hour
	}
	if c.Workers.CacheSweep == 0 {
		c.Workers.CacheSweep = 5 * time.Minute
	}
	if c.Workers.MetricRollover == 0 {
		c.Workers.MetricRollover = time.Minute
	}
	if c.Workers.LoyaltyExpiryScan == 0 {
		c.Workers.LoyaltyExpiryScan = 24 * time.Hour
	}

	if c.Availability.Deadline == 0 {
		c.Availability.Deadline = 5 * time.Second
	}
	if c.Availability.OccupancyTTL == 0 {
		c.Availability.OccupancyTTL = 2 * time.Minute
	}
}

// Validate rejects configurations that would misbehave at runtime.
func (c *Config) Validate() error {
	for category, ttl := range c.Cache.DefaultTTL {
		if ttl < 0 {
			return fmt.Errorf("cache ttl for %q must be non-negative", category)
		}
	}
	switch c.Cache.CompressionAlgorithm {
	case "gzip", "deflate", "brotli":
	default:
		return fmt.Errorf("unknown compression algorithm %q", c.Cache.CompressionAlgorithm)
	}
	for level, threshold := range c.Pricing.OccupancyThresholds {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("occupancy threshold for %s must be in [0,1], got %.2f", level, threshold)
		}
	}
	if len(c.Pricing.OccupancyThresholds) == 0 {
		return fmt.Errorf("occupancy thresholds must not be empty")
	}
	if c.Pricing.MinPriceFloor <= 0 || c.Pricing.MinPriceFloor > 1 {
		return fmt.Errorf("min price floor must be in (0,1], got %.2f", c.Pricing.MinPriceFloor)
	}
	// Tier thresholds must be strictly increasing in tier rank.
	prev := int64(-1)
	for _, tier := range domain.TierOrder {
		threshold, ok := c.Loyalty.TierThresholds[tier]
		if !ok {
			return fmt.Errorf("missing tier threshold for %s", tier)
		}
		if threshold <= prev {
			return fmt.Errorf("tier thresholds must be strictly increasing, %s=%d", tier, threshold)
		}
		prev = threshold
	}
	if c.Hub.OfflineQueueCap <= 0 {
		return fmt.Errorf("offline queue cap must be positive")
	}
	return nil
}
