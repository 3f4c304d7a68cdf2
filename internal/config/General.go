package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// SnapshotSchedule is the cron expression for the periodic pool snapshot job.
	SnapshotSchedule string

	// VenueTimeoutSeconds bounds each swap executor RPC round trip.
	VenueTimeoutSeconds uint64

	// FeeTreasury is the hex address of the custody account that receives
	// every pool's stake and profit fees.
	FeeTreasury string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	SnapshotSchedule, err = getEnv("SNAPSHOT_SCHEDULE")
	if err != nil {
		return err
	}

	VenueTimeoutSeconds, err = getEnvAsUint64("VENUE_TIMEOUT_SECONDS")
	if err != nil {
		return err
	}
	if VenueTimeoutSeconds == 0 {
		return errors.New("environment variable VENUE_TIMEOUT_SECONDS must be greater than zero")
	}

	FeeTreasury, err = getEnv("FEE_TREASURY")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("SnapshotSchedule", SnapshotSchedule).
		Uint64("VenueTimeoutSeconds", VenueTimeoutSeconds).
		Str("FeeTreasury", FeeTreasury).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsUint64 retrieves an environment variable as a uint64. Returns error if not set or invalid.
func getEnvAsUint64(key string) (uint64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint64, got: " + valueStr)
	}
	return value, nil
}
