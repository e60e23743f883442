// Package orchestrator runs the polling loop that captures device frames,
// scores them against the template library, and dispatches matching macros.
package orchestrator

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/vantrack/screenwatch/internal/cv"
	"github.com/vantrack/screenwatch/internal/events"
	"github.com/vantrack/screenwatch/internal/logging"
	"github.com/vantrack/screenwatch/internal/macro"
)

// tickInterval is how often the idle loop re-checks whether a cycle is due
const tickInterval = 100 * time.Millisecond

// errorBackoff is the pause after a failed cycle before polling resumes
const errorBackoff = 1 * time.Second

// FrameSource supplies device frames
type FrameSource interface {
	Capture() (image.Image, error)
	Invalidate()
}

// Matcher scores a frame against the template library
type Matcher interface {
	MatchAll(frame image.Image) ([]cv.MatchResult, error)
}

// MacroStore is the slice of the registry the orchestrator needs
type MacroStore interface {
	Get(name string) (macro.Macro, bool)
	EnsureMacroFor(templateFile string) (macro.Macro, bool, error)
}

// MacroRunner executes a macro against the device
type MacroRunner interface {
	Execute(name string, frame image.Image) (bool, error)
}

// Recorder persists match and execution records; may be nil
type Recorder interface {
	RecordMatch(template string, confidence float64, x, y int) error
	RecordExecution(macroName, triggerTemplate string, success bool, errMessage string, startedAt time.Time, duration time.Duration) error
}

// Orchestrator owns the polling goroutine. All cycle work happens on that
// single goroutine; the mutex only guards the timing state shared with
// SetTimingMode and Status.
type Orchestrator struct {
	capture  FrameSource
	matcher  Matcher
	registry MacroStore
	executor MacroRunner
	history  Recorder
	bus      events.EventBus
	log      *logging.Logger

	defaultThreshold float64
	autoExecute      bool
	autoCreate       bool

	mu         sync.Mutex
	mode       TimingMode
	lastCycle  time.Time
	processing bool

	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	// test seams
	now   func() time.Time
	sleep func(time.Duration)
}

// Options configures orchestrator behavior
type Options struct {
	Mode             TimingMode
	DefaultThreshold float64
	AutoExecute      bool
	AutoCreate       bool
}

// New wires an orchestrator over the capture, matching, and macro layers
func New(capture FrameSource, matcher Matcher, registry MacroStore, executor MacroRunner, opts Options) *Orchestrator {
	threshold := opts.DefaultThreshold
	if threshold == 0 {
		threshold = macro.DefaultThreshold
	}
	return &Orchestrator{
		capture:          capture,
		matcher:          matcher,
		registry:         registry,
		executor:         executor,
		log:              logging.New("orchestrator"),
		defaultThreshold: threshold,
		autoExecute:      opts.AutoExecute,
		autoCreate:       opts.AutoCreate,
		mode:             opts.Mode,
		stopCh:           make(chan struct{}),
		doneCh:           make(chan struct{}),
		now:              time.Now,
		sleep:            time.Sleep,
	}
}

// WithEventBus attaches a bus for cycle and match events
func (o *Orchestrator) WithEventBus(bus events.EventBus) *Orchestrator {
	o.bus = bus
	return o
}

// WithRecorder attaches a history recorder
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.history = r
	return o
}

// Start launches the polling goroutine. The baseline starts zeroed, so the
// first tick runs a cycle right away; SetTimingMode resets the baseline.
func (o *Orchestrator) Start() {
	o.startOnce.Do(func() {
		o.log.Infof("polling started (mode %s, interval %s)", o.Mode(), o.Mode().Interval())
		go o.loop()
	})
}

// Stop signals the polling goroutine and waits for it to exit
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	<-o.doneCh
	o.log.Info("polling stopped")
}

// Mode returns the current timing mode
func (o *Orchestrator) Mode() TimingMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// SetTimingMode changes the polling interval. The cycle baseline resets, so
// the next cycle runs one full new interval from now.
func (o *Orchestrator) SetTimingMode(mode TimingMode) {
	o.mu.Lock()
	changed := o.mode != mode
	o.mode = mode
	o.lastCycle = o.now()
	o.mu.Unlock()

	if changed {
		o.log.Infof("timing mode set to %s (interval %s)", mode, mode.Interval())
		if o.bus != nil {
			o.bus.Publish(events.NewTimingChangedEvent(mode.String(), mode.Interval().Seconds()))
		}
	}
}

// Processing reports whether a cycle is currently in flight
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

func (o *Orchestrator) loop() {
	defer close(o.doneCh)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopCh:
			return
		case <-ticker.C:
			o.maybeRunCycle()
		}
	}
}

// maybeRunCycle runs a cycle when one is due and none is in flight. The
// in-flight flag and the baseline timestamp are read and written under the
// same lock so two cycles can never overlap. The interval is measured from
// cycle start to cycle start, so a slow cycle does not stretch the period.
func (o *Orchestrator) maybeRunCycle() {
	o.mu.Lock()
	if o.processing || o.now().Sub(o.lastCycle) < o.mode.Interval() {
		o.mu.Unlock()
		return
	}
	started := o.now()
	o.processing = true
	o.mu.Unlock()

	err := o.RunCycle()

	o.mu.Lock()
	o.processing = false
	o.lastCycle = started
	o.mu.Unlock()

	if err != nil {
		o.log.Error("cycle failed", err)
		o.capture.Invalidate()
		if o.bus != nil {
			o.bus.Publish(events.NewErrorEvent("orchestrator", err))
		}
		o.sleep(errorBackoff)
	}
}

// RunCycle performs one capture-and-match pass. Exported so the operator
// surface can force an immediate cycle regardless of the timing mode.
func (o *Orchestrator) RunCycle() error {
	frame, err := o.capture.Capture()
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	results, err := o.matcher.MatchAll(frame)
	if err != nil {
		return fmt.Errorf("match: %w", err)
	}

	matches := o.qualifyingMatches(results)

	if len(matches) == 0 {
		if o.bus != nil {
			o.bus.Publish(events.NewMatchAbsentEvent())
		}
		o.publishCycleComplete(len(results), false)
		return nil
	}

	// Several templates can fire on the same frame; each one is reported
	// and dispatched, not just the strongest.
	for _, match := range matches {
		o.log.Infof("match: %s at (%d,%d) confidence %.3f",
			match.Template, match.Position.X, match.Position.Y, match.Confidence)

		if o.bus != nil {
			o.bus.Publish(events.NewMatchFoundEvent(match.Template, match.Confidence, match.Position.X, match.Position.Y))
		}
		if o.history != nil {
			if err := o.history.RecordMatch(match.Template, match.Confidence, match.Position.X, match.Position.Y); err != nil {
				o.log.Warnf("failed to record match: %v", err)
			}
		}

		if o.autoExecute {
			o.executeFor(match, frame)
		}
	}

	o.publishCycleComplete(len(results), true)
	return nil
}

// qualifyingMatches returns every result that clears its macro's threshold,
// in the matcher's deterministic order. A template without a macro is scored
// against the default threshold, and a qualifying one gets a starter macro
// synthesized when auto-create is on.
func (o *Orchestrator) qualifyingMatches(results []cv.MatchResult) []cv.MatchResult {
	var matches []cv.MatchResult

	for _, result := range results {
		threshold := o.defaultThreshold
		name := macro.NameForTemplate(result.Template)
		if m, ok := o.registry.Get(name); ok {
			threshold = m.ConfidenceThreshold
		}

		if !result.Meets(threshold) {
			continue
		}

		if o.autoCreate {
			if _, created, err := o.registry.EnsureMacroFor(result.Template); err != nil {
				o.log.Warnf("failed to auto-create macro for %s: %v", result.Template, err)
			} else if created {
				o.log.Infof("auto-created macro for template %s", result.Template)
			}
		}

		matches = append(matches, result)
	}

	return matches
}

func (o *Orchestrator) executeFor(match cv.MatchResult, frame image.Image) {
	name := macro.NameForTemplate(match.Template)
	started := o.now()

	ran, err := o.executor.Execute(name, frame)
	duration := o.now().Sub(started)

	if err != nil {
		o.log.Error(fmt.Sprintf("macro %s execution failed", name), err)
	} else if ran {
		o.log.Infof("macro %s executed in %s", name, duration.Round(time.Millisecond))
	}

	if o.history != nil && (ran || err != nil) {
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		}
		if recErr := o.history.RecordExecution(name, match.Template, err == nil, errMsg, started, duration); recErr != nil {
			o.log.Warnf("failed to record execution: %v", recErr)
		}
	}
}

func (o *Orchestrator) publishCycleComplete(templateCount int, matched bool) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.Event{
		Type:      events.EventTypeCycleComplete,
		Source:    "orchestrator",
		Timestamp: o.now(),
		Data: map[string]interface{}{
			"templates": templateCount,
			"matched":   matched,
		},
	})
}
