package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// LoadFromINI loads configuration from a Settings.ini file
func LoadFromINI(path string) (*Config, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := NewDefaultConfig()
	section := cfg.Section("UserSettings")

	// Device
	config.ADBPath = section.Key("adbPath").MustString(config.ADBPath)
	config.DeviceID = section.Key("deviceId").MustString(config.DeviceID)

	// Directories
	config.TemplatesDir = section.Key("templatesDir").MustString(config.TemplatesDir)
	config.MacrosDir = section.Key("macrosDir").MustString(config.MacrosDir)
	config.TmpDir = section.Key("tmpDir").MustString(config.TmpDir)
	config.HistoryDB = section.Key("historyDb").MustString(config.HistoryDB)

	// Capture
	config.RefreshRateSeconds = section.Key("refreshRate").MustFloat64(config.RefreshRateSeconds)

	// Matching
	config.DefaultThreshold = section.Key("defaultThreshold").MustFloat64(config.DefaultThreshold)
	if config.DefaultThreshold < 0 || config.DefaultThreshold > 1 {
		return nil, fmt.Errorf("defaultThreshold must be in [0,1]: %v", config.DefaultThreshold)
	}

	// Orchestration
	config.TimingMode = section.Key("timingMode").MustString(config.TimingMode)
	config.AutoExecute = section.Key("autoExecute").MustBool(config.AutoExecute)
	config.AutoCreate = section.Key("autoCreateMacros").MustBool(config.AutoCreate)

	// Users
	config.UsersFile = section.Key("usersFile").MustString(config.UsersFile)

	// Logging
	config.LogLevel = section.Key("logLevel").MustString(config.LogLevel)
	config.LoggingEnabled = section.Key("loggingEnabled").MustBool(config.LoggingEnabled)

	return config, nil
}

// NewDefaultConfig creates a config with default values
func NewDefaultConfig() *Config {
	return &Config{
		ADBPath:            "",
		DeviceID:           "",
		TemplatesDir:       "templates",
		MacrosDir:          "macros",
		TmpDir:             "tmp",
		HistoryDB:          "history.db",
		RefreshRateSeconds: 1.0,
		DefaultThreshold:   0.8,
		TimingMode:         "normal",
		AutoExecute:        false,
		AutoCreate:         true,
		UsersFile:          "users.ini",
		LogLevel:           "INFO",
		LoggingEnabled:     true,
	}
}

// SaveToINI saves configuration to an INI file
func SaveToINI(config *Config, path string) error {
	cfg := ini.Empty()
	section := cfg.Section("UserSettings")

	// Device
	section.Key("adbPath").SetValue(config.ADBPath)
	section.Key("deviceId").SetValue(config.DeviceID)

	// Directories
	section.Key("templatesDir").SetValue(config.TemplatesDir)
	section.Key("macrosDir").SetValue(config.MacrosDir)
	section.Key("tmpDir").SetValue(config.TmpDir)
	section.Key("historyDb").SetValue(config.HistoryDB)

	// Capture
	section.Key("refreshRate").SetValue(fmt.Sprintf("%g", config.RefreshRateSeconds))

	// Matching
	section.Key("defaultThreshold").SetValue(fmt.Sprintf("%g", config.DefaultThreshold))

	// Orchestration
	section.Key("timingMode").SetValue(config.TimingMode)
	section.Key("autoExecute").SetValue(fmt.Sprintf("%t", config.AutoExecute))
	section.Key("autoCreateMacros").SetValue(fmt.Sprintf("%t", config.AutoCreate))

	// Users
	section.Key("usersFile").SetValue(config.UsersFile)

	// Logging
	section.Key("logLevel").SetValue(config.LogLevel)
	section.Key("loggingEnabled").SetValue(fmt.Sprintf("%t", config.LoggingEnabled))

	return cfg.SaveTo(path)
}
