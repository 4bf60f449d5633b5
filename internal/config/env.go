package config

import (
	"errors"
	"os"
	"strconv"
)

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvWithDefault retrieves a string environment variable, falling back to
// def when unset.
func getEnvWithDefault(key, def string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		if value == "" {
			return "", errors.New("environment variable " + key + " must not be empty")
		}
		return value, nil
	}
	return def, nil
}

// lookupEnv retrieves an optional environment variable, empty when unset.
func lookupEnv(key string) string {
	value, _ := os.LookupEnv(key)
	return value
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

// getEnvAsUint64WithDefault retrieves an environment variable as a uint64,
// falling back to def when unset.
func getEnvAsUint64WithDefault(key string, def uint64) (uint64, error) {
	if _, exists := os.LookupEnv(key); !exists {
		return def, nil
	}
	return getEnvAsUint64(key)
}

// getEnvAsIntWithDefault retrieves an environment variable as an int, falling
// back to def when unset.
func getEnvAsIntWithDefault(key string, def int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return def, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}
