package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Default file names inside the configuration directory
const (
	IngestionConfigFile = "ingestion.defaults.yml"
	EnvFile             = ".env"
)

// Config represents the complete application configuration
type Config struct {
	Ingestion *IngestionConfig
}

// LoadConfig loads secrets from an optional .env file in configDir, then the
// service configuration file from the same directory
func LoadConfig(configDir string) (*Config, error) {
	absDir, err := filepath.Abs(configDir)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config directory: %w", err)
	}

	if err := LoadEnvFile(filepath.Join(absDir, EnvFile)); err != nil {
		return nil, err
	}

	ingestionPath := filepath.Join(absDir, IngestionConfigFile)
	ingestionCfg, err := LoadIngestionConfig(ingestionPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingestion config: %w", err)
	}

	return &Config{Ingestion: ingestionCfg}, nil
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment.
// A missing file is not an error and variables already set are kept.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file '%s': %w", path, err)
	}
	return nil
}
