// Package main is the entry point for the capsulectl CLI.
// The CLI submits capsule computations to a Code Ocean deployment and
// downloads their results.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"capsulectl/cmd/cli/cmd"
	"capsulectl/internal/logger"
)

func main() {
	// Load .env if present; credentials may also come from the real env.
	_ = godotenv.Load()

	slog.SetDefault(logger.New())

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
