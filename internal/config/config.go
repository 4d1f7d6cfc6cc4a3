package config

import (
	"os"
	"strconv"
	"strings"

	"pvcapacity/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Data       DataConfig
	Simulation SimulationConfig
	Output     OutputConfig
	Database   DatabaseConfig
	Server     ServerConfig
	LogLevel   string
}

// DataConfig holds input file settings
type DataConfig struct {
	SiteListFile    string
	ErrorConfigFile string
	CacheDir        string
	// RowLimit truncates the site list for test runs; 0 means no limit
	RowLimit int
}

// SimulationConfig holds Monte Carlo settings
type SimulationConfig struct {
	DomesticCutoffMW float64
	BatchSize        int
	Workers          int
	Verbose          bool
	// JohnsonSURetries caps redraws of an out-of-bound Johnson SU value
	JohnsonSURetries int
}

// OutputConfig holds sample sink settings
type OutputConfig struct {
	Dir string
}

// DatabaseConfig holds optional PostgreSQL settings for result upload
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds results server settings
type ServerConfig struct {
	Port string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Data:       *loadDataConfig(),
		Simulation: *loadSimulationConfig(),
		Output: OutputConfig{
			Dir: getEnvOrDefault("OUTPUT_DIR", "./results"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDataConfig() *DataConfig {
	return &DataConfig{
		SiteListFile:    getEnvOrDefault("SITE_LIST_FILE", ""),
		ErrorConfigFile: getEnvOrDefault("ERROR_CONFIG_FILE", ""),
		CacheDir:        getEnvOrDefault("CACHE_DIR", ""),
		RowLimit:        getEnvIntOrDefault("ROW_LIMIT", 0),
	}
}

func loadSimulationConfig() *SimulationConfig {
	return &SimulationConfig{
		DomesticCutoffMW: getEnvFloatOrDefault("DOMESTIC_CUTOFF_MW", 10),
		BatchSize:        getEnvIntOrDefault("BATCH_SIZE", 10),
		Workers:          getEnvIntOrDefault("WORKERS", 1),
		Verbose:          getEnvBoolOrDefault("VERBOSE", false),
		JohnsonSURetries: getEnvIntOrDefault("JOHNSON_SU_RETRIES", 1000),
	}
}

// Validate checks the values that do not depend on which command runs.
// Input file presence is checked by the commands that need it.
func (c *Config) Validate() error {
	if c.Simulation.DomesticCutoffMW <= 0 {
		return errors.ConfigInvalid("DOMESTIC_CUTOFF_MW must be > 0")
	}
	if c.Simulation.BatchSize <= 0 {
		return errors.ConfigInvalid("BATCH_SIZE must be > 0")
	}
	if c.Simulation.Workers <= 0 {
		return errors.ConfigInvalid("WORKERS must be > 0")
	}
	if c.Simulation.JohnsonSURetries <= 0 {
		return errors.ConfigInvalid("JOHNSON_SU_RETRIES must be > 0")
	}
	if c.Data.RowLimit < 0 {
		return errors.ConfigInvalid("ROW_LIMIT must be >= 0")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.ConfigInvalid("OUTPUT_DIR is required")
	}
	return nil
}

// RequireInputs checks that both input files are configured
func (c *Config) RequireInputs() error {
	if c.Data.SiteListFile == "" {
		return errors.ConfigInvalid("SITE_LIST_FILE is required")
	}
	if c.Data.ErrorConfigFile == "" {
		return errors.ConfigInvalid("ERROR_CONFIG_FILE is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
