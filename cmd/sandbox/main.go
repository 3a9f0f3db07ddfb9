// Command sandbox runs a local backend that speaks the garage API, for
// developing and testing garagectl without the hosted service.
package main

import (
	"os"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/app"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/logging"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logger := logging.New(os.Getenv("SANDBOX_LOG_LEVEL"), os.Stderr, "sandbox")
	application, err := app.New(version, buildDate, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init sandbox")
	}
	if err := application.Run(); err != nil {
		logger.Fatal().Err(err).Msg("sandbox stopped with error")
	}
}
