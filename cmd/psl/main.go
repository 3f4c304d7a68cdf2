package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/engine"
	"github.com/agentstake/psl/internal/ledger"
	"github.com/agentstake/psl/internal/logger"
	"github.com/agentstake/psl/internal/snapshot"
	"github.com/agentstake/psl/internal/state"
	"github.com/agentstake/psl/internal/swap"
	"github.com/agentstake/psl/internal/types"
	"github.com/agentstake/psl/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the pooled staking ledger service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Pooled Staking Ledger Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Resolve the fee treasury account all pools route fees to
	feeTreasury, err := types.AddressFromHex(config.FeeTreasury)
	if err != nil {
		log.Fatal().Err(err).Msg("FEE_TREASURY is not a valid hex address")
	}

	// --- 2. Create Core Components with Dependency Injection ---
	venueClient, err := swap.NewClient(config.VenueRPC)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create swap venue client")
	}
	log.Info().Str("endpoint", config.VenueRPC).Msg("Swap venue client created")

	ledgerInstance, err := ledger.New(ledger.Config{Venue: venueClient})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger instance")
	}

	engineInstance, err := engine.NewEngine(engine.Config{
		Ledger:      ledgerInstance,
		FeeTreasury: feeTreasury,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	// --- 3. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, engineInstance)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting pool operations API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Start Snapshot Recorder ---
	recorder, err := snapshot.NewRecorder(config.SnapshotSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create snapshot recorder")
	}
	if err := recorder.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start snapshot recorder")
	}

	// --- 5. Wait for Shutdown Signal ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received, stopping...")
	recorder.Stop()
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
