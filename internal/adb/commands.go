package adb

import (
	"fmt"
	"strings"
)

// DefaultSwipeDuration is used when a swipe does not specify its own duration
const DefaultSwipeDuration = 500 // milliseconds

// Tap performs a tap at the specified coordinates
func (c *Controller) Tap(x, y int) error {
	if x < 0 || y < 0 {
		return fmt.Errorf("tap coordinates must be non-negative: (%d, %d)", x, y)
	}
	_, err := c.Shell(fmt.Sprintf("input tap %d %d", x, y))
	return err
}

// Swipe performs a swipe gesture; duration is in milliseconds
func (c *Controller) Swipe(x1, y1, x2, y2, duration int) error {
	if x1 < 0 || y1 < 0 || x2 < 0 || y2 < 0 {
		return fmt.Errorf("swipe coordinates must be non-negative: (%d,%d)-(%d,%d)", x1, y1, x2, y2)
	}
	if duration <= 0 {
		duration = DefaultSwipeDuration
	}
	_, err := c.Shell(fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, duration))
	return err
}

// Key sends a key event (e.g. "KEYCODE_BACK", "66")
func (c *Controller) Key(code string) error {
	_, err := c.Shell(fmt.Sprintf("input keyevent %s", code))
	return err
}

// Text injects text input. Single quotes are escaped so the content
// survives the device-side shell.
func (c *Controller) Text(content string) error {
	escaped := strings.ReplaceAll(content, "'", `\'`)
	_, err := c.Shell(fmt.Sprintf("input text '%s'", escaped))
	return err
}

// Screencap captures the device screen to a remote path on the device
func (c *Controller) Screencap(remotePath string) error {
	_, err := c.Shell(fmt.Sprintf("screencap -p %s", remotePath))
	return err
}

// Pull copies a file from the device to a local path
func (c *Controller) Pull(remotePath, localPath string) error {
	_, err := c.Exec("pull", remotePath, localPath)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}
	return nil
}

// Push copies a local file to the device
func (c *Controller) Push(localPath, remotePath string) error {
	_, err := c.Exec("push", localPath, remotePath)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	return nil
}

// DeleteIfExists removes a remote file, treating an already-absent target
// as success. The -f flag makes the delete idempotent on the device side
// instead of pattern-matching stderr text for "No such file".
func (c *Controller) DeleteIfExists(remotePath string) error {
	_, err := c.Shell(fmt.Sprintf("rm -f %s", remotePath))
	return err
}
