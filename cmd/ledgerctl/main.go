package main

import (
	"os"

	"crocus/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Component("cli").Errorw("Command execution failed", "error", err)
		os.Exit(1)
	}
}
