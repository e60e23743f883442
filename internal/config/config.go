// Package config loads and persists runtime settings from Settings.ini.
package config

// Config holds the runtime settings for the automation core
type Config struct {
	// Device
	ADBPath  string
	DeviceID string

	// Directories
	TemplatesDir string
	MacrosDir    string
	TmpDir       string
	HistoryDB    string

	// Capture
	RefreshRateSeconds float64

	// Matching
	DefaultThreshold float64

	// Orchestration
	TimingMode  string
	AutoExecute bool
	AutoCreate  bool

	// Users
	UsersFile string

	// Logging
	LogLevel       string
	LoggingEnabled bool
}
