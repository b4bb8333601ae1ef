package main

import (
	"os"

	"github.com/go-authgate/consentgate/cmd"
	"github.com/go-authgate/consentgate/internal/logger"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		logger.L().Error("command failed", logger.Err(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
