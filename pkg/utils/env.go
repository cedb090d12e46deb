package utils

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads the .env file (if any) and wires viper to the environment.
func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AutomaticEnv()

	if err := godotenv.Load(); err == nil {
		logrus.Debug("[CONFIG] Loaded environment from .env")
	}

	if err := viper.ReadInConfig(); err != nil {
		logrus.Debugf("[CONFIG] No .env config file: %v", err)
	}
}

// CreateFolder makes sure every given directory exists.
func CreateFolder(folders ...string) error {
	for _, folder := range folders {
		if err := os.MkdirAll(folder, 0755); err != nil {
			return err
		}
	}
	return nil
}
