package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	appDirName = ".teamsync"
	envHome    = "TEAMSYNC_HOME"
)

// DataDir returns the base data directory. TEAMSYNC_HOME overrides the
// default of ~/.teamsync.
func DataDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv(envHome)); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// CoreConfigPath returns the path to the TOML settings file.
func CoreConfigPath() (string, error) {
	return dataFile("config.toml")
}

// EnvFilePath returns the path to the optional dotenv file in the data dir.
func EnvFilePath() (string, error) {
	return dataFile(".env")
}

// TokenPath returns the default path to the API token file.
func TokenPath() (string, error) {
	return dataFile("token")
}

// SessionIndexPath returns the default path to the session index database.
func SessionIndexPath() (string, error) {
	return dataFile("sessions.db")
}

// SessionIndexFilePath returns the JSON session index used by the file
// store backend.
func SessionIndexFilePath() (string, error) {
	return dataFile("sessions.json")
}

// LogPath returns the path used for logs while the terminal UI is running.
func LogPath() (string, error) {
	return dataFile("teamsync.log")
}

func dataFile(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, name), nil
}
