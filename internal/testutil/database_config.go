package testutil

import (
	"fmt"
	"os"
)

// DatabaseConfig holds configuration for connecting to a test server.
type DatabaseConfig struct {
	URL string
}

// GetDatabaseConfig reads the test server from the environment.
// CATTREE_TEST_DATABASE_URL wins over the discrete CATTREE_TEST_DATABASE_*
// variables. An empty URL means a container is started instead.
// The user must be allowed to create databases.
func GetDatabaseConfig() DatabaseConfig {
	if url := os.Getenv("CATTREE_TEST_DATABASE_URL"); url != "" {
		return DatabaseConfig{URL: url}
	}

	host := os.Getenv("CATTREE_TEST_DATABASE_HOST")
	if host == "" {
		return DatabaseConfig{}
	}
	return DatabaseConfig{
		URL: buildDatabaseURL(
			getEnv("CATTREE_TEST_DATABASE_USER", "postgres"),
			getEnv("CATTREE_TEST_DATABASE_PASSWORD", ""),
			host,
			getEnv("CATTREE_TEST_DATABASE_PORT", "5432"),
			getEnv("CATTREE_TEST_DATABASE_NAME", "postgres"),
			getEnv("CATTREE_TEST_DATABASE_SSLMODE", "disable"),
		),
	}
}

// buildDatabaseURL constructs a PostgreSQL connection string.
func buildDatabaseURL(user, password, host, port, dbname, sslmode string) string {
	if password != "" {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			user, password, host, port, dbname, sslmode)
	}
	return fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s",
		user, host, port, dbname, sslmode)
}

// getEnv gets an environment variable with a fallback default value.
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
