package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromINIMissingFile(t *testing.T) {
	if _, err := LoadFromINI(filepath.Join(t.TempDir(), "absent.ini")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadFromINIDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Settings.ini")
	if err := os.WriteFile(path, []byte("[UserSettings]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("LoadFromINI failed: %v", err)
	}

	defaults := NewDefaultConfig()
	if cfg.DefaultThreshold != defaults.DefaultThreshold {
		t.Errorf("DefaultThreshold = %v, want %v", cfg.DefaultThreshold, defaults.DefaultThreshold)
	}
	if cfg.TimingMode != defaults.TimingMode {
		t.Errorf("TimingMode = %q, want %q", cfg.TimingMode, defaults.TimingMode)
	}
	if cfg.AutoExecute != defaults.AutoExecute {
		t.Errorf("AutoExecute = %v, want %v", cfg.AutoExecute, defaults.AutoExecute)
	}
}

func TestLoadFromINIOverrides(t *testing.T) {
	doc := `[UserSettings]
adbPath = /opt/platform-tools/adb
deviceId = emulator-5554
templatesDir = /data/templates
refreshRate = 2.5
defaultThreshold = 0.7
timingMode = slow
autoExecute = true
autoCreateMacros = false
logLevel = DEBUG
`
	path := filepath.Join(t.TempDir(), "Settings.ini")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("LoadFromINI failed: %v", err)
	}

	if cfg.ADBPath != "/opt/platform-tools/adb" {
		t.Errorf("ADBPath = %q", cfg.ADBPath)
	}
	if cfg.DeviceID != "emulator-5554" {
		t.Errorf("DeviceID = %q", cfg.DeviceID)
	}
	if cfg.TemplatesDir != "/data/templates" {
		t.Errorf("TemplatesDir = %q", cfg.TemplatesDir)
	}
	if cfg.RefreshRateSeconds != 2.5 {
		t.Errorf("RefreshRateSeconds = %v", cfg.RefreshRateSeconds)
	}
	if cfg.DefaultThreshold != 0.7 {
		t.Errorf("DefaultThreshold = %v", cfg.DefaultThreshold)
	}
	if cfg.TimingMode != "slow" {
		t.Errorf("TimingMode = %q", cfg.TimingMode)
	}
	if !cfg.AutoExecute || cfg.AutoCreate {
		t.Errorf("AutoExecute = %v, AutoCreate = %v", cfg.AutoExecute, cfg.AutoCreate)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadFromINIRejectsBadThreshold(t *testing.T) {
	doc := "[UserSettings]\ndefaultThreshold = 1.5\n"
	path := filepath.Join(t.TempDir(), "Settings.ini")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromINI(path); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.DeviceID = "192.168.1.5:5555"
	cfg.RefreshRateSeconds = 0.5
	cfg.TimingMode = "extra_slow"
	cfg.AutoExecute = true

	path := filepath.Join(t.TempDir(), "Settings.ini")
	if err := SaveToINI(cfg, path); err != nil {
		t.Fatalf("SaveToINI failed: %v", err)
	}

	loaded, err := LoadFromINI(path)
	if err != nil {
		t.Fatalf("LoadFromINI failed: %v", err)
	}

	if *loaded != *cfg {
		t.Errorf("roundtrip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}
