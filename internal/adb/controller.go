package adb

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// ErrExecutableNotFound is returned when the adb binary cannot be located.
// Fatal at startup: no automation is possible without the device bridge.
var ErrExecutableNotFound = errors.New("adb executable not found")

// Runner executes an external command and returns its combined output.
// The production runner shells out to the resolved adb binary; tests
// substitute a fake to capture the issued commands.
type Runner interface {
	Run(name string, args ...string) (output string, err error)
}

// execRunner runs commands through os/exec
type execRunner struct{}

func (execRunner) Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("command failed: %w, output: %s", err, out)
	}
	return strings.TrimSpace(string(out)), nil
}

// Controller issues commands to a single device through the adb binary.
// The binary path is resolved once at construction; the logical "adb" name
// is always replaced by the absolute path since the binary is not assumed
// to be on the search path.
type Controller struct {
	path   string
	device string
	runner Runner
	mu     sync.Mutex
}

// NewController creates a controller bound to a device ID ("" = default device)
func NewController(adbPath, device string) *Controller {
	return &Controller{
		path:   adbPath,
		device: device,
		runner: execRunner{},
	}
}

// WithRunner substitutes the command runner (used by tests)
func (c *Controller) WithRunner(r Runner) *Controller {
	c.runner = r
	return c
}

// Device returns the bound device ID
func (c *Controller) Device() string {
	return c.device
}

// Path returns the resolved adb binary path
func (c *Controller) Path() string {
	return c.path
}

// Exec runs an adb subcommand against the bound device and returns stdout
func (c *Controller) Exec(args ...string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := make([]string, 0, len(args)+2)
	if c.device != "" {
		full = append(full, "-s", c.device)
	}
	full = append(full, args...)

	return c.runner.Run(c.path, full...)
}

// Shell runs a shell command on the device
func (c *Controller) Shell(command string) (string, error) {
	return c.Exec("shell", command)
}
