package adb

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// FindADB locates the adb executable. An explicit path wins; otherwise the
// bundled platform-tools directory and common install locations are tried,
// then PATH. Returns ErrExecutableNotFound when nothing resolves.
func FindADB(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err == nil {
			return explicitPath, nil
		}
		return "", fmt.Errorf("%w: %s", ErrExecutableNotFound, explicitPath)
	}

	binary := "adb"
	if runtime.GOOS == "windows" {
		binary = "adb.exe"
	}

	candidates := []string{
		filepath.Join("platform-tools", binary),
	}
	if runtime.GOOS == "windows" {
		candidates = append(candidates,
			`C:\Android\sdk\platform-tools\adb.exe`,
			os.ExpandEnv(`${LOCALAPPDATA}\Android\Sdk\platform-tools\adb.exe`),
		)
	} else {
		candidates = append(candidates,
			"/usr/bin/adb",
			"/usr/local/bin/adb",
			os.ExpandEnv("${HOME}/Android/Sdk/platform-tools/adb"),
		)
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	if path, err := exec.LookPath(binary); err == nil {
		return path, nil
	}

	return "", ErrExecutableNotFound
}

// Device is one entry from `adb devices -l`
type Device struct {
	ID     string
	State  string // "device", "offline", "unauthorized"
	Detail string
}

// ListDevices returns the devices the bridge currently knows about
func ListDevices(adbPath string, runner Runner) ([]Device, error) {
	if runner == nil {
		runner = execRunner{}
	}

	out, err := runner.Run(adbPath, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		d := Device{ID: fields[0], State: fields[1]}
		if len(fields) > 2 {
			d.Detail = strings.Join(fields[2:], " ")
		}
		devices = append(devices, d)
	}

	return devices, nil
}
