package config

// PricingConfig holds the fare and dispatch tuning knobs. MinutesPerKM is a
// rough city-traffic heuristic, not an empirically derived figure; the surge
// and search radii default to 5 km. All of these are deployment
// configuration rather than hardcoded law.
type PricingConfig struct {
	BaseFare       float64 `yaml:"base_fare"`
	PerKMRate      float64 `yaml:"per_km_rate"`
	PerMinuteRate  float64 `yaml:"per_minute_rate"`
	MinutesPerKM   float64 `yaml:"minutes_per_km"`
	SearchRadiusKM float64 `yaml:"search_radius_km"`
	SurgeRadiusKM  float64 `yaml:"surge_radius_km"`
	Currency       string  `yaml:"currency"`
}

func loadPricingConfig() *PricingConfig {
	return &PricingConfig{
		BaseFare:       getEnvAsFloat64("PRICING_BASE_FARE", 500),
		PerKMRate:      getEnvAsFloat64("PRICING_PER_KM_RATE", 100),
		PerMinuteRate:  getEnvAsFloat64("PRICING_PER_MINUTE_RATE", 50),
		MinutesPerKM:   getEnvAsFloat64("PRICING_MINUTES_PER_KM", 3),
		SearchRadiusKM: getEnvAsFloat64("PRICING_SEARCH_RADIUS_KM", 5),
		SurgeRadiusKM:  getEnvAsFloat64("PRICING_SURGE_RADIUS_KM", 5),
		Currency:       getEnv("PRICING_CURRENCY", "CFA"),
	}
}
