package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper() {
	viper.Reset()
	viper.SetEnvPrefix("CODEOCEAN")
	viper.AutomaticEnv()
}

func TestLoad_RequiresToken(t *testing.T) {
	resetViper()
	viper.Set("domain", "https://codeocean.example.org")

	_, err := Load()
	if err == nil {
		t.Error("expected error when no token is configured")
	}
	if !strings.Contains(err.Error(), "API token not found") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_RequiresDomain(t *testing.T) {
	resetViper()
	viper.Set("token", "secret")
	viper.Set("domain", "")

	_, err := Load()
	if err == nil {
		t.Error("expected error when domain is missing")
	}
	if !strings.Contains(err.Error(), "domain is required") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	resetViper()
	viper.Set("domain", "https://codeocean.example.org")
	viper.Set("token", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.JobsFile != "jobs.json" {
		t.Errorf("expected JobsFile jobs.json, got %s", cfg.JobsFile)
	}
	if cfg.DownloadRoot != "codeocean_downloads" {
		t.Errorf("expected DownloadRoot codeocean_downloads, got %s", cfg.DownloadRoot)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", cfg.PollInterval)
	}
}

func TestLoad_TrimsDomainSlash(t *testing.T) {
	resetViper()
	viper.Set("domain", "https://codeocean.example.org/")
	viper.Set("token", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Domain != "https://codeocean.example.org" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Domain)
	}
}

func TestLoad_TokenFromEnv(t *testing.T) {
	resetViper()
	viper.Set("domain", "https://codeocean.example.org")
	t.Setenv("CODEOCEAN_TOKEN", "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Token != "env-token" {
		t.Errorf("expected token from env var, got %s", cfg.Token)
	}
}

func TestLoad_TokenFromFile(t *testing.T) {
	resetViper()

	tokenPath := filepath.Join(t.TempDir(), "codeocean")
	if err := os.WriteFile(tokenPath, []byte("file-token\n"), 0600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}

	viper.Set("domain", "https://codeocean.example.org")
	viper.Set("token-file", tokenPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Token != "file-token" {
		t.Errorf("expected trimmed token from file, got %q", cfg.Token)
	}
}

func TestLoad_EnvTokenWinsOverFile(t *testing.T) {
	resetViper()

	tokenPath := filepath.Join(t.TempDir(), "codeocean")
	if err := os.WriteFile(tokenPath, []byte("file-token"), 0600); err != nil {
		t.Fatalf("failed to write token file: %v", err)
	}

	viper.Set("domain", "https://codeocean.example.org")
	viper.Set("token-file", tokenPath)
	t.Setenv("CODEOCEAN_TOKEN", "env-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Token != "env-token" {
		t.Errorf("expected env token to win, got %q", cfg.Token)
	}
}

func TestLoad_MissingTokenFile(t *testing.T) {
	resetViper()
	viper.Set("domain", "https://codeocean.example.org")
	viper.Set("token-file", filepath.Join(t.TempDir(), "does-not-exist"))

	_, err := Load()
	if err == nil {
		t.Error("expected error for unreadable token file")
	}
}
