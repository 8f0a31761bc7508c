package main

import (
	"embed"
	"os"

	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("migrate failed")
		os.Exit(1)
	}
}
