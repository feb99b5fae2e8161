// Package config loads runtime configuration from the environment, with an
// optional .env file read first.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Postgres holds the connection settings for the export target, using the
// same environment variables as the pipeline the table originated from.
type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds a lib/pq connection string
func (p Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// Config is the full runtime configuration
type Config struct {
	DataDir  string // snapshot + WAL directory
	CSVPath  string // default CSV source for bulk loads
	SeqURL   string // Seq ingestion endpoint, empty disables the Seq handler
	Postgres Postgres
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load() // missing .env is fine

	return &Config{
		DataDir: getenv("SALARYDB_DATA_DIR", "data"),
		CSVPath: getenv("SALARYDB_CSV", "salaries.csv"),
		SeqURL:  os.Getenv("SEQ_URL"),
		Postgres: Postgres{
			Host:     getenv("POSTGRES_HOST", "localhost"),
			Port:     getenv("POSTGRES_PORT", "5432"),
			User:     getenv("POSTGRES_USER", "postgres"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   getenv("POSTGRES_DB", "salaries"),
			SSLMode:  getenv("POSTGRES_SSLMODE", "disable"),
		},
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
