package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/staking-ledger/internal/bank"
	"github.com/elys-network/staking-ledger/internal/config"
	"github.com/elys-network/staking-ledger/internal/ledger"
	"github.com/elys-network/staking-ledger/internal/logger"
	"github.com/elys-network/staking-ledger/internal/mint"
	"github.com/elys-network/staking-ledger/internal/state"
	"github.com/elys-network/staking-ledger/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// main is the entry point for the staking ledger service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Staking Ledger Starting...")

	// Initialize Database Connection (operation journal)
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

	store, err := state.NewPostgresStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create journal store")
	}

	// --- 2. Collaborator Wiring ---
	custody := bank.NewLedger()
	for account, amount := range config.GenesisAccounts {
		if err := custody.Fund(account, sdk.NewCoin(config.StakeDenom, amount)); err != nil {
			log.Fatal().Err(err).Str("account", account).Msg("Failed to fund genesis account")
		}
		log.Info().Str("account", account).Str("amount", amount.String()).Msg("Genesis account funded")
	}

	rewardMint, issuanceAuthority := mint.New(config.RewardDenom)

	engine, err := ledger.NewEngine(ledger.Config{
		Custody:            custody,
		Issuer:             rewardMint,
		Store:              store,
		MinRetainedBalance: config.MinRetainedBalance,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger engine")
	}

	// --- 3. Pool Restore-or-Initialize ---
	journaledPool, err := state.LoadPool()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load journaled pool")
	}
	if journaledPool != nil {
		positions, err := state.LoadPositions()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load journaled positions")
		}
		if err := engine.Restore(*journaledPool, issuanceAuthority, positions); err != nil {
			log.Fatal().Err(err).Msg("Failed to restore ledger state")
		}
	} else {
		pool, err := engine.InitializePool(ledger.InitPoolParams{
			Authority:         config.PoolAuthority,
			StakeDenom:        config.StakeDenom,
			RewardDenom:       config.RewardDenom,
			RewardRatePerSec:  config.RewardRatePerSec,
			RewardPrecision:   config.RewardPrecision,
			IssuanceAuthority: issuanceAuthority,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize staking pool")
		}
		log.Info().Str("rewardDenom", pool.RewardDenom).Msg("Fresh staking pool created")
	}

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, engine)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting staking ledger API")
		if err := webServer.Start(); err != nil {
			log.Fatal().Err(err).Msg("Web server failed")
		}
	}()

	// Block until asked to shut down.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
