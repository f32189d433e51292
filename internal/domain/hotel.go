package domain

import "time"

// Coordinates is an optional geographic position for a hotel.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// QRSettings controls QR-code based flows for a hotel.
type QRSettings struct {
	Enabled             bool            `json:"enabled"`
	SecurityLevel       string          `json:"securityLevel"` // LOW, MEDIUM, HIGH
	EnabledTypes        map[string]bool `json:"enabledTypes"`
	ExpiryHours         int             `json:"expiryHours"`
	RequireGeolocation  bool            `json:"requireGeolocation"`
	GeoRadiusMeters     float64         `json:"geoRadiusMeters"`
}

// CacheSettings is the per-hotel cache tuning block.
type CacheSettings struct {
	Strategy             CacheStrategy                `json:"strategy"`
	CustomTTL            map[string]map[string]int    `json:"customTTL"` // category -> subkind -> seconds
	InvalidationStrategy InvalidationStrategy         `json:"invalidationStrategy"`
	InvalidateOnBooking  bool                         `json:"invalidateOnBooking"`
	InvalidateOnPricing  bool                         `json:"invalidateOnPricing"`
	WarmingEnabled       bool                         `json:"warmingEnabled"`
	WarmingHorizonDays   int                          `json:"warmingHorizonDays"`
	WarmingPriorities    map[string]int               `json:"warmingPriorities"`
	CompressionThreshold int                          `json:"compressionThreshold"`
	CompressionAlgorithm string                       `json:"compressionAlgorithm"` // gzip, deflate, brotli
	DelayedInvalidateMS  int                          `json:"delayedInvalidateMs"`
	MinHitRate           float64                      `json:"minHitRate"`
}

// PriceConstraints bounds a computed dynamic price.
type PriceConstraints struct {
	MinPrice            float64 `json:"minPrice"`
	MaxPrice            float64 `json:"maxPrice"`
	MaxDailyChangePct   float64 `json:"maxDailyChangePct"`
}

// EventPricing marks a date window carrying an event multiplier.
type EventPricing struct {
	Name       string    `json:"name"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Multiplier float64   `json:"multiplier"` // within [1.0, 5.0]
}

// SeasonalPricing is an explicit per-hotel seasonal window that overrides the
// default month-bucket seasonal factor.
type SeasonalPricing struct {
	Name       string    `json:"name"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	Multiplier float64   `json:"multiplier"`
}

// YieldManagement is the per-hotel revenue tuning block.
type YieldManagement struct {
	Enabled             bool                          `json:"enabled"`
	Strategy            string                        `json:"strategy"`
	BasePricing         map[RoomType]float64          `json:"basePricing"`
	PriceConstraints    map[RoomType]PriceConstraints `json:"priceConstraints"`
	OccupancyThresholds map[DemandLevel]float64       `json:"occupancyThresholds"`
	DayOfWeekMultiplier map[time.Weekday]float64      `json:"dayOfWeekMultiplier"`
	EventPricing        []EventPricing                `json:"eventPricing"`
	SeasonalPricing     []SeasonalPricing             `json:"seasonalPricing"`
	MaxDailyPriceChange float64                       `json:"maxDailyPriceChange"` // fraction, e.g. 0.25
	RevenueTargetDaily  float64                       `json:"revenueTargetDaily"`
	PriceValidityMin    int                           `json:"priceValidityMinutes"`
}

// HealthStatus summarizes a hotel's rollup health.
type HealthStatus string

const (
	HealthGood     HealthStatus = "GOOD"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthCritical HealthStatus = "CRITICAL"
)

// PerformanceMetrics is the advisory per-hotel rollup snapshot. It is derived
// state and never authoritative.
type PerformanceMetrics struct {
	CacheHitRates   map[string]float64 `json:"cacheHitRates"`
	QRUsageRate     float64            `json:"qrUsageRate"`
	QRSuccessRate   float64            `json:"qrSuccessRate"`
	RevPAR          float64            `json:"revPar"`
	ADR             float64            `json:"adr"`
	Health          HealthStatus       `json:"health"`
	Issues          []string           `json:"issues"`
	Recommendations []string           `json:"recommendations"`
	SnapshotAt      time.Time          `json:"snapshotAt"`
}

// Hotel is the authoritative hotel record.
type Hotel struct {
	ID          HotelID             `json:"id"`
	Code        string              `json:"code"`
	Name        string              `json:"name"`
	Stars       int                 `json:"stars"`
	Timezone    string              `json:"timezone"` // IANA name, defaults to UTC
	Coordinates *Coordinates        `json:"coordinates,omitempty"`
	QRSettings  QRSettings          `json:"qrSettings"`
	Cache       CacheSettings       `json:"cacheSettings"`
	Yield       YieldManagement     `json:"yieldManagement"`
	Metrics     *PerformanceMetrics `json:"performanceMetrics,omitempty"`
}

// Location returns the hotel's time.Location, falling back to UTC when the
// timezone is absent or unknown.
func (h *Hotel) Location() *time.Location {
	if h.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BasePriceFor resolves the fallback base price for a room type from yield
// management configuration. Returns 0 when not configured.
func (h *Hotel) BasePriceFor(rt RoomType) float64 {
	if h.Yield.BasePricing == nil {
		return 0
	}
	return h.Yield.BasePricing[rt]
}
