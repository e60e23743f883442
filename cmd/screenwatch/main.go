package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vantrack/screenwatch/internal/adb"
	"github.com/vantrack/screenwatch/internal/capture"
	"github.com/vantrack/screenwatch/internal/config"
	"github.com/vantrack/screenwatch/internal/cv"
	"github.com/vantrack/screenwatch/internal/events"
	"github.com/vantrack/screenwatch/internal/history"
	"github.com/vantrack/screenwatch/internal/logging"
	"github.com/vantrack/screenwatch/internal/macro"
	"github.com/vantrack/screenwatch/internal/orchestrator"
	"github.com/vantrack/screenwatch/internal/users"
)

func main() {
	configPath := flag.String("config", "Settings.ini", "Path to settings file")
	device := flag.String("device", "", "Device ID (overrides config)")
	timingMode := flag.String("timing", "", "Timing mode: fast, normal, slow, extra_slow (overrides config)")
	autoExecute := flag.Bool("auto-execute", false, "Execute active macros when their trigger matches")
	once := flag.Bool("once", false, "Run a single capture-and-match cycle and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *device != "" {
		cfg.DeviceID = *device
	}
	if *timingMode != "" {
		cfg.TimingMode = *timingMode
	}
	if *autoExecute {
		cfg.AutoExecute = true
	}

	applyLogging(cfg)
	logger := logging.New("main")

	mode, err := orchestrator.ParseTimingMode(cfg.TimingMode)
	if err != nil {
		log.Fatalf("Invalid timing mode: %v", err)
	}

	// Device bridge
	adbPath, err := adb.FindADB(cfg.ADBPath)
	if err != nil {
		log.Fatalf("ADB not available: %v", err)
	}
	bridge := adb.NewController(adbPath, cfg.DeviceID)
	logger.Infof("using adb at %s (device %q)", adbPath, cfg.DeviceID)

	// Event bus
	bus := events.NewEventBus(64)
	defer bus.Stop()
	subscribeLogging(bus, logger)

	// Capture and matching
	refreshRate := time.Duration(cfg.RefreshRateSeconds * float64(time.Second))
	acquirer, err := capture.New(bridge, cfg.TmpDir, refreshRate)
	if err != nil {
		log.Fatalf("Failed to create capture layer: %v", err)
	}
	acquirer.WithEventBus(bus)
	library := cv.NewLibrary(cfg.TemplatesDir)

	// Macros
	registry, err := macro.NewRegistry(cfg.MacrosDir)
	if err != nil {
		log.Fatalf("Failed to create macro registry: %v", err)
	}
	registry.WithEventBus(bus)
	if err := registry.Load(); err != nil {
		log.Fatalf("Failed to load macros: %v", err)
	}

	watcher := macro.NewWatcher(registry)
	if err := watcher.Start(); err != nil {
		logger.Warnf("macro auto-reload unavailable: %v", err)
	} else {
		defer watcher.Stop()
	}

	// Users
	store, err := users.LoadStore(cfg.UsersFile)
	if err != nil {
		log.Fatalf("Failed to load users: %v", err)
	}

	executor := macro.NewExecutor(registry, bridge, library).
		WithCredentials(store).
		WithEventBus(bus)

	// History
	db, err := history.Open(cfg.HistoryDB)
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer db.Close()

	orch := orchestrator.New(acquirer, library, registry, executor, orchestrator.Options{
		Mode:             mode,
		DefaultThreshold: cfg.DefaultThreshold,
		AutoExecute:      cfg.AutoExecute,
		AutoCreate:       cfg.AutoCreate,
	}).WithEventBus(bus).WithRecorder(db)

	if *once {
		if err := orch.RunCycle(); err != nil {
			log.Fatalf("Cycle failed: %v", err)
		}
		return
	}

	orch.Start()
	defer orch.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("received %s, shutting down", sig)
}

// loadConfig reads Settings.ini, creating it with defaults on first run
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := config.NewDefaultConfig()
		if err := config.SaveToINI(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}
	return config.LoadFromINI(path)
}

func applyLogging(cfg *config.Config) {
	if !cfg.LoggingEnabled {
		logging.SetGlobalMinLevel(logging.LogLevelError)
		return
	}
	logging.SetGlobalMinLevel(logging.ParseLevel(cfg.LogLevel))
}

// subscribeLogging mirrors notable bus events into the log so headless runs
// are observable without a separate subscriber
func subscribeLogging(bus events.EventBus, logger *logging.Logger) {
	bus.Subscribe(events.EventTypeMatchFound, func(e events.Event) {
		logger.Infof("event %s: %v", e.Type, e.Data)
	})
	bus.Subscribe(events.EventTypeMacroCreated, func(e events.Event) {
		logger.Infof("event %s: %v", e.Type, e.Data)
	})
	bus.Subscribe(events.EventTypeMacroExecuted, func(e events.Event) {
		logger.Infof("event %s: %v", e.Type, e.Data)
	})
	bus.Subscribe(events.EventTypeError, func(e events.Event) {
		logger.Warnf("event %s from %s: %v", e.Type, e.Source, e.Data)
	})
}
