package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// VenueRPC is the JSON-RPC endpoint of the swap execution venue.
	VenueRPC string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	VenueRPC, err = getEnv("VENUE_RPC")
	if err != nil {
		return err
	}

	log.Debug().
		Str("VenueRPC", VenueRPC).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
