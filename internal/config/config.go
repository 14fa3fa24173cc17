package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config represents the complete application configuration
type Config struct {
	Server ServerConfig
	Fit    FitConfig
	Paths  PathConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// FitConfig holds REML iteration settings
type FitConfig struct {
	Tolerance float64
	MaxIter   int
}

// PathConfig holds file system paths
type PathConfig struct {
	StudyFile string // default study table for the CLI (.xlsx or .csv)
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Fit: FitConfig{
			Tolerance: getEnvFloatOrDefault("REML_TOLERANCE", 1e-8),
			MaxIter:   getEnvIntOrDefault("REML_MAX_ITER", 100),
		},
		Paths: PathConfig{
			StudyFile: getEnvOrDefault("STUDY_FILE", ""),
		},
	}

	if config.Fit.Tolerance <= 0 {
		return nil, fmt.Errorf("configuration validation failed: REML_TOLERANCE must be positive")
	}
	if config.Fit.MaxIter < 1 {
		return nil, fmt.Errorf("configuration validation failed: REML_MAX_ITER must be at least 1")
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
