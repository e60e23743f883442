package macro

import (
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/vantrack/screenwatch/internal/cv"
	"github.com/vantrack/screenwatch/internal/events"
	"github.com/vantrack/screenwatch/internal/logging"
)

// SettleDelay is applied after every device-touching action so the target
// app's UI can react before the next injection
const SettleDelay = 1 * time.Second

// DeviceInjector is the slice of the adb controller the executor needs
type DeviceInjector interface {
	Tap(x, y int) error
	Swipe(x1, y1, x2, y2, duration int) error
	Key(code string) error
	Text(content string) error
}

// TriggerMatcher re-scores a frame against a named template, for the
// pre-execution trigger check
type TriggerMatcher interface {
	Match(frame image.Image, name string) (cv.MatchResult, error)
}

// Credentials resolves placeholder values for text actions
type Credentials interface {
	Lookup(username string) (password string, ok bool)
	Default() (username, password string, ok bool)
}

// Executor runs a macro's action sequence against a device, after checking
// its preconditions. Execution is strictly ordered and aborts on the first
// failing action; there is no rollback of already-injected input.
type Executor struct {
	registry *Registry
	device   DeviceInjector
	matcher  TriggerMatcher
	creds    Credentials
	bus      events.EventBus
	log      *logging.Logger

	sleep func(time.Duration) // test seam
}

// NewExecutor wires an executor over the registry and device
func NewExecutor(registry *Registry, device DeviceInjector, matcher TriggerMatcher) *Executor {
	return &Executor{
		registry: registry,
		device:   device,
		matcher:  matcher,
		log:      logging.New("executor"),
		sleep:    time.Sleep,
	}
}

// WithCredentials attaches a credential source for placeholder substitution
func (e *Executor) WithCredentials(creds Credentials) *Executor {
	e.creds = creds
	return e
}

// WithEventBus attaches a bus for execution lifecycle events
func (e *Executor) WithEventBus(bus events.EventBus) *Executor {
	e.bus = bus
	return e
}

// Execute runs the named macro if its preconditions hold. The boolean
// reports whether the action sequence actually ran: a missing, inactive, or
// trigger-failed macro returns (false, nil) — skipping is not an error.
// When the macro declares a trigger image and a frame is supplied, the
// trigger is re-validated against that frame with the macro's own threshold
// before any input is injected.
func (e *Executor) Execute(name string, frame image.Image) (bool, error) {
	m, ok := e.registry.Get(name)
	if !ok {
		e.log.Debugf("macro %s not found, skipping", name)
		return false, nil
	}

	if !m.IsActive {
		e.log.Debugf("macro %s is inactive, skipping", name)
		return false, nil
	}

	if m.TriggerImage != "" && frame != nil && e.matcher != nil {
		result, err := e.matcher.Match(frame, m.TriggerImage)
		if err != nil {
			return false, fmt.Errorf("trigger check for macro %s failed: %w", name, err)
		}
		if !result.Meets(m.ConfidenceThreshold) {
			e.log.Debugf("macro %s trigger %s below threshold (%.3f < %.2f), skipping",
				name, m.TriggerImage, result.Confidence, m.ConfidenceThreshold)
			return false, nil
		}
	}

	e.log.Infof("executing macro %s (%d actions)", name, len(m.Actions))
	err := e.runActions(&m)
	if e.bus != nil {
		e.bus.Publish(events.NewMacroExecutedEvent(name, err == nil))
	}
	if err != nil {
		return false, fmt.Errorf("macro %s: %w", name, err)
	}
	return true, nil
}

func (e *Executor) runActions(m *Macro) error {
	for i, action := range m.Actions {
		e.log.Debugf("action %d/%d: %s", i+1, len(m.Actions), action)
		if err := e.runAction(m, action); err != nil {
			return fmt.Errorf("action %d (%s): %w", i+1, action.Kind, err)
		}
	}
	return nil
}

func (e *Executor) runAction(m *Macro, action Action) error {
	switch action.Kind {
	case ActionTap:
		if err := e.device.Tap(action.X, action.Y); err != nil {
			return err
		}
		e.sleep(SettleDelay)
	case ActionSwipe:
		if err := e.device.Swipe(action.X1, action.Y1, action.X2, action.Y2, action.DurationMS); err != nil {
			return err
		}
		e.sleep(SettleDelay)
	case ActionKey:
		if err := e.device.Key(action.Code); err != nil {
			return err
		}
		e.sleep(SettleDelay)
	case ActionText:
		content, err := e.substitute(m, action.Content)
		if err != nil {
			return err
		}
		if err := e.device.Text(content); err != nil {
			return err
		}
		e.sleep(SettleDelay)
	case ActionWait:
		e.sleep(time.Duration(action.Seconds * float64(time.Second)))
	default:
		return fmt.Errorf("unknown action type %q", action.Kind)
	}
	return nil
}

// substitute resolves ${username} and ${password} placeholders from the
// macro's associated user, falling back to the default user record
func (e *Executor) substitute(m *Macro, content string) (string, error) {
	if !strings.Contains(content, "${username}") && !strings.Contains(content, "${password}") {
		return content, nil
	}
	if e.creds == nil {
		return "", fmt.Errorf("text contains credential placeholders but no credential source is configured")
	}

	var username, password string
	if len(m.Users) > 0 {
		username = m.Users[0].Username
		pw, ok := e.creds.Lookup(username)
		if !ok {
			return "", fmt.Errorf("no stored credentials for user %q", username)
		}
		password = pw
	} else {
		u, pw, ok := e.creds.Default()
		if !ok {
			return "", fmt.Errorf("no default user configured for credential placeholders")
		}
		username, password = u, pw
	}

	content = strings.ReplaceAll(content, "${username}", username)
	content = strings.ReplaceAll(content, "${password}", password)
	return content, nil
}
