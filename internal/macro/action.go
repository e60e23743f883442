package macro

import "fmt"

// ActionKind discriminates the input-injection action variants
type ActionKind string

const (
	ActionTap   ActionKind = "tap"
	ActionSwipe ActionKind = "swipe"
	ActionKey   ActionKind = "key"
	ActionText  ActionKind = "text"
	ActionWait  ActionKind = "wait"
)

// DefaultSwipeDurationMS is applied when a swipe omits its duration
const DefaultSwipeDurationMS = 500

// Action is a single input-injection step. The Kind field selects which of
// the variant fields are meaningful; Validate enforces the shape so the
// executor's dispatch switch can assume well-formed records.
type Action struct {
	Kind ActionKind `yaml:"type"`

	// tap
	X int `yaml:"x,omitempty"`
	Y int `yaml:"y,omitempty"`

	// swipe
	X1         int `yaml:"x1,omitempty"`
	Y1         int `yaml:"y1,omitempty"`
	X2         int `yaml:"x2,omitempty"`
	Y2         int `yaml:"y2,omitempty"`
	DurationMS int `yaml:"duration_ms,omitempty"`

	// key
	Code string `yaml:"code,omitempty"`

	// text; content may carry ${username}/${password} placeholders
	Content string `yaml:"content,omitempty"`

	// wait
	Seconds float64 `yaml:"seconds,omitempty"`
}

// Validate checks the variant fields for the action's kind and applies
// defaults (swipe duration)
func (a *Action) Validate() error {
	switch a.Kind {
	case ActionTap:
		if a.X < 0 || a.Y < 0 {
			return fmt.Errorf("tap coordinates must be non-negative: (%d, %d)", a.X, a.Y)
		}
	case ActionSwipe:
		if a.X1 < 0 || a.Y1 < 0 || a.X2 < 0 || a.Y2 < 0 {
			return fmt.Errorf("swipe coordinates must be non-negative: (%d,%d)-(%d,%d)", a.X1, a.Y1, a.X2, a.Y2)
		}
		if a.DurationMS == 0 {
			a.DurationMS = DefaultSwipeDurationMS
		}
		if a.DurationMS < 0 {
			return fmt.Errorf("swipe duration must be positive: %d", a.DurationMS)
		}
	case ActionKey:
		if a.Code == "" {
			return fmt.Errorf("key action requires a code")
		}
	case ActionText:
		if a.Content == "" {
			return fmt.Errorf("text action requires content")
		}
	case ActionWait:
		if a.Seconds <= 0 {
			return fmt.Errorf("wait seconds must be positive: %v", a.Seconds)
		}
	case "":
		return fmt.Errorf("action missing 'type' field")
	default:
		return fmt.Errorf("unknown action type %q", a.Kind)
	}
	return nil
}

// String renders the action for logs and operator displays
func (a Action) String() string {
	switch a.Kind {
	case ActionTap:
		return fmt.Sprintf("tap(%d, %d)", a.X, a.Y)
	case ActionSwipe:
		return fmt.Sprintf("swipe(%d,%d -> %d,%d, %dms)", a.X1, a.Y1, a.X2, a.Y2, a.DurationMS)
	case ActionKey:
		return fmt.Sprintf("key(%s)", a.Code)
	case ActionText:
		return fmt.Sprintf("text(%q)", a.Content)
	case ActionWait:
		return fmt.Sprintf("wait(%vs)", a.Seconds)
	default:
		return fmt.Sprintf("unknown(%s)", a.Kind)
	}
}
