package main

import (
	"os"

	"peanalyze/internal/cli"
	"peanalyze/internal/logging"
)

func main() {
	logger := logging.NewLogger()
	defer logger.Close()
	defer logging.RecoverPanic(logger.Logger, "main", func() {
		logger.Error("peanalyze terminated due to an unhandled panic")
		os.Exit(1)
	})

	cli.Execute()
}
