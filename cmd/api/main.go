package main

import (
	"context"
	"os"

	"github.com/cloverkingdom/academy/internal/bootstrap"
	"github.com/cloverkingdom/academy/internal/pkg/logger"
	"github.com/cloverkingdom/academy/internal/server"
)

// @title Clover Kingdom Magic Academy API
// @version 1.0
// @description Admission requests and grimoire assignment for the Clover Kingdom magic academy

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	srv, err := server.NewServer(context.Background(), bootstrap.ConfigPath())
	if err != nil {
		// Error details are logged within NewServer's setup functions
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	// Blocks until shutdown signal
	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
