// Package capture pulls device screenshots through the adb bridge and
// decodes them into in-memory frames, rate-limiting device I/O.
package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vantrack/screenwatch/internal/events"
	"github.com/vantrack/screenwatch/internal/logging"
)

// DefaultSettleDelay gives the on-device screencap write time to flush
// before the pull
const DefaultSettleDelay = 500 * time.Millisecond

// Bridge is the slice of the adb controller the acquirer needs
type Bridge interface {
	Screencap(remotePath string) error
	Pull(remotePath, localPath string) error
	DeleteIfExists(remotePath string) error
	Device() string
}

// Acquirer captures frames from a device with rate limiting. Within
// refreshRate of the last successful capture, the cached frame is returned
// without a device round-trip.
type Acquirer struct {
	bridge      Bridge
	tmpDir      string
	refreshRate time.Duration
	settleDelay time.Duration
	log         *logging.Logger
	bus         events.EventBus

	mu       sync.Mutex
	last     image.Image
	lastTime time.Time

	// test seams
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates an acquirer writing temp pulls into tmpDir. Stale temp files
// from a previous run are removed up front.
func New(bridge Bridge, tmpDir string, refreshRate time.Duration) (*Acquirer, error) {
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create tmp directory: %w", err)
	}

	a := &Acquirer{
		bridge:      bridge,
		tmpDir:      tmpDir,
		refreshRate: refreshRate,
		settleDelay: DefaultSettleDelay,
		log:         logging.New("capture"),
		now:         time.Now,
		sleep:       time.Sleep,
	}
	a.cleanupTmpFiles()
	return a, nil
}

// WithSettleDelay overrides the post-screencap settle delay
func (a *Acquirer) WithSettleDelay(d time.Duration) *Acquirer {
	a.settleDelay = d
	return a
}

// WithEventBus attaches a bus for capture lifecycle events
func (a *Acquirer) WithEventBus(bus events.EventBus) *Acquirer {
	a.bus = bus
	return a
}

// SetRefreshRate changes the minimum time between device captures
func (a *Acquirer) SetRefreshRate(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refreshRate = d
}

// Capture returns the current device frame. If called again within the
// refresh rate it returns the previously cached frame unchanged.
func (a *Acquirer) Capture() (image.Image, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.last != nil && a.now().Sub(a.lastTime) < a.refreshRate {
		return a.last, nil
	}

	frame, err := a.captureFresh()
	if err != nil {
		if a.bus != nil {
			a.bus.Publish(events.Event{
				Type:      events.EventTypeCaptureFailed,
				Source:    "capture",
				Timestamp: a.now(),
				Data:      map[string]interface{}{"error": err.Error()},
			})
		}
		return nil, err
	}

	a.last = frame
	a.lastTime = a.now()
	if a.bus != nil {
		b := frame.Bounds()
		a.bus.Publish(events.NewFrameCapturedEvent(a.bridge.Device(), b.Dx(), b.Dy()))
	}
	return frame, nil
}

// LastFrame returns the most recent frame and its capture time
func (a *Acquirer) LastFrame() (image.Image, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last, a.lastTime
}

// Invalidate drops the cached frame so the next Capture hits the device
func (a *Acquirer) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = nil
	a.lastTime = time.Time{}
}

func (a *Acquirer) captureFresh() (image.Image, error) {
	stamp := a.now().Format("20060102_150405.000")
	name := fmt.Sprintf("screenshot_%s.png", stamp)
	remote := "/sdcard/" + name
	local := filepath.Join(a.tmpDir, name)

	if err := a.bridge.Screencap(remote); err != nil {
		return nil, fmt.Errorf("screencap failed: %w", err)
	}

	// Let the on-device write flush before pulling
	a.sleep(a.settleDelay)

	if err := a.bridge.Pull(remote, local); err != nil {
		a.cleanup(remote, local)
		return nil, fmt.Errorf("pull failed: %w", err)
	}

	if _, err := os.Stat(local); err != nil {
		a.cleanup(remote, local)
		return nil, fmt.Errorf("pulled screenshot missing at %s: %w", local, err)
	}

	frame, err := decodePNG(local)
	a.cleanup(remote, local)
	if err != nil {
		return nil, fmt.Errorf("screenshot decode failed: %w", err)
	}

	return frame, nil
}

// cleanup removes both copies of the screenshot, best effort
func (a *Acquirer) cleanup(remote, local string) {
	if err := a.bridge.DeleteIfExists(remote); err != nil {
		a.log.Warnf("failed to remove remote screenshot %s: %v", remote, err)
	}
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		a.log.Warnf("failed to remove local screenshot %s: %v", local, err)
	}
}

func (a *Acquirer) cleanupTmpFiles() {
	entries, err := os.ReadDir(a.tmpDir)
	if err != nil {
		a.log.Warnf("failed to scan tmp directory: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(a.tmpDir, entry.Name())); err != nil {
			a.log.Warnf("failed to remove stale tmp file %s: %v", entry.Name(), err)
		}
	}
}

func decodePNG(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return png.Decode(file)
}
