package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("load .env")
	}

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("enqueue failed")
		os.Exit(1)
	}
}
