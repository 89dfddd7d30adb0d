package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig represents optional overrides for the import pipeline and the
// U-turn trimmer. The schema matches the /api/config endpoint so the same
// JSON shape appears in both places. Fields omitted from the JSON file
// retain their defaults, so partial configs are safe.
type TuningConfig struct {
	// Geometry params
	PaddingM         *float64 `json:"padding_m,omitempty"`
	MaxTileM         *float64 `json:"max_tile_m,omitempty"`
	SimplifyEpsilonM *float64 `json:"simplify_epsilon_m,omitempty"`

	// Trim params
	WindowFraction      *float64 `json:"window_fraction,omitempty"`
	CornerAngleMinDeg   *float64 `json:"corner_angle_min_deg,omitempty"`
	DirectionReverseDeg *float64 `json:"direction_reverse_deg,omitempty"`
	MaxUTurnFraction    *float64 `json:"max_uturn_fraction,omitempty"`

	// Bulk params
	Workers *int `json:"workers,omitempty"`

	// Client params
	NominatimMinInterval *string `json:"nominatim_min_interval,omitempty"` // duration string like "1s"
	CountryCodes         *string `json:"country_codes,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.WindowFraction != nil {
		if *c.WindowFraction < 0 || *c.WindowFraction > 1 {
			return fmt.Errorf("window_fraction must be between 0 and 1, got %f", *c.WindowFraction)
		}
	}
	if c.MaxUTurnFraction != nil {
		if *c.MaxUTurnFraction < 0 || *c.MaxUTurnFraction > 1 {
			return fmt.Errorf("max_uturn_fraction must be between 0 and 1, got %f", *c.MaxUTurnFraction)
		}
	}
	if c.CornerAngleMinDeg != nil {
		if *c.CornerAngleMinDeg < 0 || *c.CornerAngleMinDeg > 180 {
			return fmt.Errorf("corner_angle_min_deg must be between 0 and 180, got %f", *c.CornerAngleMinDeg)
		}
	}
	if c.DirectionReverseDeg != nil {
		if *c.DirectionReverseDeg < 0 || *c.DirectionReverseDeg > 180 {
			return fmt.Errorf("direction_reverse_deg must be between 0 and 180, got %f", *c.DirectionReverseDeg)
		}
	}
	if c.PaddingM != nil && *c.PaddingM < 0 {
		return fmt.Errorf("padding_m must be non-negative, got %f", *c.PaddingM)
	}
	if c.MaxTileM != nil && *c.MaxTileM <= 0 {
		return fmt.Errorf("max_tile_m must be positive, got %f", *c.MaxTileM)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.NominatimMinInterval != nil && *c.NominatimMinInterval != "" {
		if _, err := time.ParseDuration(*c.NominatimMinInterval); err != nil {
			return fmt.Errorf("invalid nominatim_min_interval '%s': %w", *c.NominatimMinInterval, err)
		}
	}
	return nil
}

// GetPaddingM returns the padding_m value or the default.
func (c *TuningConfig) GetPaddingM() float64 {
	if c.PaddingM == nil {
		return 100
	}
	return *c.PaddingM
}

// GetMaxTileM returns the max_tile_m value or the default.
func (c *TuningConfig) GetMaxTileM() float64 {
	if c.MaxTileM == nil {
		return 3000
	}
	return *c.MaxTileM
}

// GetSimplifyEpsilonM returns the simplify_epsilon_m value or the default.
func (c *TuningConfig) GetSimplifyEpsilonM() float64 {
	if c.SimplifyEpsilonM == nil {
		return 0.5
	}
	return *c.SimplifyEpsilonM
}

// GetWindowFraction returns the window_fraction value or the default.
func (c *TuningConfig) GetWindowFraction() float64 {
	if c.WindowFraction == nil {
		return 0.10
	}
	return *c.WindowFraction
}

// GetCornerAngleMinDeg returns the corner_angle_min_deg value or the default.
func (c *TuningConfig) GetCornerAngleMinDeg() float64 {
	if c.CornerAngleMinDeg == nil {
		return 70.0
	}
	return *c.CornerAngleMinDeg
}

// GetDirectionReverseDeg returns the direction_reverse_deg value or the default.
func (c *TuningConfig) GetDirectionReverseDeg() float64 {
	if c.DirectionReverseDeg == nil {
		return 150.0
	}
	return *c.DirectionReverseDeg
}

// GetMaxUTurnFraction returns the max_uturn_fraction value or the default.
func (c *TuningConfig) GetMaxUTurnFraction() float64 {
	if c.MaxUTurnFraction == nil {
		return 0.10
	}
	return *c.MaxUTurnFraction
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetNominatimMinInterval parses and returns the nominatim_min_interval as
// a time.Duration.
func (c *TuningConfig) GetNominatimMinInterval() time.Duration {
	if c.NominatimMinInterval == nil || *c.NominatimMinInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.NominatimMinInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// GetCountryCodes returns the country_codes value or the default (no filter).
func (c *TuningConfig) GetCountryCodes() string {
	if c.CountryCodes == nil {
		return ""
	}
	return *c.CountryCodes
}
