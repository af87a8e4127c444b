// Package config resolves the tool's configuration from viper-bound
// flags, CODEOCEAN_* environment variables, and the optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the CLI.
type Config struct {
	// Base URL of the Code Ocean deployment
	Domain string

	// API token for the platform
	Token string

	// Path of the persisted jobs ledger
	JobsFile string

	// Root directory for downloaded result files
	DownloadRoot string

	// Interval between status polls in watch mode
	PollInterval time.Duration
}

// Load reads configuration from viper. The token resolves in order:
// --token flag / CODEOCEAN_TOKEN, then the file named by --token-file.
// Missing credentials are a hard error; nothing works without them.
func Load() (*Config, error) {
	domain := strings.TrimRight(viper.GetString("domain"), "/")
	if domain == "" {
		return nil, errors.New("platform domain is required (--domain or CODEOCEAN_DOMAIN)")
	}

	token := viper.GetString("token")
	if token == "" {
		if tokenFile := viper.GetString("token-file"); tokenFile != "" {
			data, err := os.ReadFile(tokenFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read token file: %w", err)
			}
			token = strings.TrimSpace(string(data))
		}
	}
	if token == "" {
		return nil, errors.New("API token not found: set --token, CODEOCEAN_TOKEN, or --token-file")
	}

	jobsFile := viper.GetString("jobs-file")
	if jobsFile == "" {
		jobsFile = "jobs.json"
	}

	downloadRoot := viper.GetString("out")
	if downloadRoot == "" {
		downloadRoot = "codeocean_downloads"
	}

	pollInterval := viper.GetDuration("interval")
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}

	return &Config{
		Domain:       domain,
		Token:        token,
		JobsFile:     jobsFile,
		DownloadRoot: downloadRoot,
		PollInterval: pollInterval,
	}, nil
}
