package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// LoadConfig reads the .env file found in path (if any) into the process environment
// and lets viper see every variable.
func LoadConfig(path string) error {
	envFile := filepath.Join(path, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		logrus.Debugf("[CONFIG] loaded %s", envFile)
	}

	viper.AddConfigPath(path)
	viper.AutomaticEnv()
	return nil
}

// CreateFolder creates every folder, including parents.
func CreateFolder(folderPath ...string) error {
	for _, folder := range folderPath {
		if folder == "" {
			continue
		}
		if err := os.MkdirAll(folder, 0755); err != nil {
			return fmt.Errorf("create folder %s: %w", folder, err)
		}
	}
	return nil
}

// CreateParentFolder creates the directory holding file.
func CreateParentFolder(file string) error {
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	return CreateFolder(dir)
}
