package main

import (
	"os"

	"github.com/yigit/campuskizuna/internal/pkg/logger"
	"github.com/yigit/campuskizuna/internal/server"
)

// @title CampusKizuna API
// @version 1.0
// @description Campus social network with academic scheduling: profiles, feed, notices, stories, classrooms, timetables, attendance and assignments.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT issued when a session becomes Active

func main() {
	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
