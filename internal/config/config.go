// Package config provides configuration loading and management for the
// MovieBuzz client. It handles environment variable parsing and provides
// default values for all settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// In development, it loads .env and .env.local files if they exist.
// In production, it relies solely on system environment variables.
// The loading order ensures that system environment variables take precedence over .env files.
func init() {
	// godotenv.Load() does not override already-set environment variables,
	// preserving OS env > .env precedence

	// Load .env file if it exists (for shared development config)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	// Load .env.local if it exists (for local overrides, gitignored)
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the MovieBuzz client.
type Config struct {
	Env string // Deployment environment (dev, prod)

	// Catalog (metadata service) settings
	CatalogBaseURL string // Base URL of the movie metadata service
	CatalogAPIKey  string // API key appended to every catalog request
	ImageBaseURL   string // Base URL prepended to poster paths
	PlaceholderURL string // Poster URL used when the catalog has no poster path

	// User backend settings
	BackendURL string // Base URL of the user-interaction backend

	// Session settings
	TokenPath string // Filesystem path of the persisted bearer token
}

// Default configuration values used when environment variables are not set
const (
	defaultEnv            = "dev"
	defaultCatalogBaseURL = "https://api.themoviedb.org/3"
	defaultImageBaseURL   = "https://image.tmdb.org/t/p/w500"
	defaultPlaceholderURL = "https://placehold.co/500x750/2d3748/ffffff?text=No+Image"
)

// Load reads environment variables and produces a Config suitable for wiring
// the client. It handles both required and optional parameters, providing
// defaults where appropriate. Returns an error if required parameters are
// missing.
func Load() (Config, error) {
	cfg := Config{}

	cfg.Env = getEnv("MOVIEBUZZ_ENV", defaultEnv)
	cfg.CatalogBaseURL = getEnv("MOVIEBUZZ_TMDB_BASE_URL", defaultCatalogBaseURL)
	cfg.ImageBaseURL = getEnv("MOVIEBUZZ_TMDB_IMAGE_BASE_URL", defaultImageBaseURL)
	cfg.PlaceholderURL = getEnv("MOVIEBUZZ_PLACEHOLDER_URL", defaultPlaceholderURL)

	if key, exists := os.LookupEnv("MOVIEBUZZ_TMDB_API_KEY"); exists {
		cfg.CatalogAPIKey = key
	}

	if backendURL, exists := os.LookupEnv("MOVIEBUZZ_BACKEND_URL"); exists {
		cfg.BackendURL = backendURL
	}

	if tokenPath, exists := os.LookupEnv("MOVIEBUZZ_TOKEN_PATH"); exists {
		cfg.TokenPath = tokenPath
	} else {
		cfg.TokenPath = defaultTokenPath()
	}

	// Validate required parameters
	if cfg.CatalogAPIKey == "" {
		return cfg, fmt.Errorf("MOVIEBUZZ_TMDB_API_KEY is required")
	}

	if cfg.BackendURL == "" {
		return cfg, fmt.Errorf("MOVIEBUZZ_BACKEND_URL is required")
	}

	return cfg, nil
}

// defaultTokenPath places the persisted token under the user's config
// directory, falling back to the working directory when it is unavailable.
func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".moviebuzz-token"
	}
	return filepath.Join(dir, "moviebuzz", "token")
}

// getEnv retrieves an environment variable value, returning a fallback if not set or empty
func getEnv(key, fallback string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return fallback
}
