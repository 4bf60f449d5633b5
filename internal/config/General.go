package config

import (
	"errors"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// PoolAuthority is the identity of the administrator that owns the pool.
	PoolAuthority string

	// StakeDenom is the base asset participants deposit.
	StakeDenom string
	// RewardDenom is the asset participants receive as reward.
	RewardDenom string

	// RewardRatePerSec is the scaled reward units accrued per staked unit per second.
	RewardRatePerSec sdkmath.Int
	// RewardPrecision is the number of decimals divided out of the raw accrual
	// product exactly once, when a reward is issued.
	RewardPrecision int

	// MinRetainedBalance is the residual custody balance at or below which an
	// emptied position is deallocated.
	MinRetainedBalance sdkmath.Int

	// GenesisAccounts maps account identities to their initial base-asset
	// funding, parsed from "alice:1000,bob:500" form. Optional.
	GenesisAccounts map[string]sdkmath.Int
)

// LoadConfig loads configuration from environment variables and sets the global
// config vars. Pool parameters are required; genesis funding is optional.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	PoolAuthority, err = getEnv("POOL_AUTHORITY")
	if err != nil {
		return err
	}

	StakeDenom, err = getEnvWithDefault("STAKE_DENOM", DefaultStakeDenom)
	if err != nil {
		return err
	}

	RewardDenom, err = getEnvWithDefault("REWARD_DENOM", DefaultRewardDenom)
	if err != nil {
		return err
	}

	rate, err := getEnvAsUint64("REWARD_RATE_PER_SEC")
	if err != nil {
		return err
	}
	RewardRatePerSec = sdkmath.NewIntFromUint64(rate)

	RewardPrecision, err = getEnvAsIntWithDefault("REWARD_PRECISION", DefaultRewardPrecision)
	if err != nil {
		return err
	}

	retained, err := getEnvAsUint64WithDefault("MIN_RETAINED_BALANCE", DefaultMinRetainedBalance)
	if err != nil {
		return err
	}
	MinRetainedBalance = sdkmath.NewIntFromUint64(retained)

	GenesisAccounts, err = parseGenesisAccounts(lookupEnv("GENESIS_ACCOUNTS"))
	if err != nil {
		return err
	}

	log.Debug().
		Str("PoolAuthority", PoolAuthority).
		Str("StakeDenom", StakeDenom).
		Str("RewardDenom", RewardDenom).
		Str("RewardRatePerSec", RewardRatePerSec.String()).
		Int("RewardPrecision", RewardPrecision).
		Msg("Configuration loaded successfully.")

	return nil
}

// parseGenesisAccounts parses "name:amount,name:amount" into funded accounts.
func parseGenesisAccounts(raw string) (map[string]sdkmath.Int, error) {
	accounts := make(map[string]sdkmath.Int)
	if strings.TrimSpace(raw) == "" {
		return accounts, nil
	}
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, errors.New("GENESIS_ACCOUNTS entries must be name:amount, got: " + entry)
		}
		amount, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, errors.New("GENESIS_ACCOUNTS amount must be a valid uint64, got: " + parts[1])
		}
		accounts[parts[0]] = sdkmath.NewIntFromUint64(amount)
	}
	return accounts, nil
}
