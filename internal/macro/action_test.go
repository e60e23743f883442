package macro

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestActionValidate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr string
	}{
		{name: "tap ok", action: Action{Kind: ActionTap, X: 10, Y: 20}},
		{name: "tap negative", action: Action{Kind: ActionTap, X: -1, Y: 20}, wantErr: "non-negative"},
		{name: "swipe ok", action: Action{Kind: ActionSwipe, X1: 0, Y1: 0, X2: 100, Y2: 100, DurationMS: 300}},
		{name: "swipe negative duration", action: Action{Kind: ActionSwipe, DurationMS: -5}, wantErr: "duration"},
		{name: "key ok", action: Action{Kind: ActionKey, Code: "KEYCODE_HOME"}},
		{name: "key missing code", action: Action{Kind: ActionKey}, wantErr: "code"},
		{name: "text ok", action: Action{Kind: ActionText, Content: "hi"}},
		{name: "text empty", action: Action{Kind: ActionText}, wantErr: "content"},
		{name: "wait ok", action: Action{Kind: ActionWait, Seconds: 1.5}},
		{name: "wait zero", action: Action{Kind: ActionWait}, wantErr: "positive"},
		{name: "missing type", action: Action{}, wantErr: "type"},
		{name: "unknown type", action: Action{Kind: "scroll"}, wantErr: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSwipeDurationDefaultApplied(t *testing.T) {
	a := Action{Kind: ActionSwipe, X1: 1, Y1: 2, X2: 3, Y2: 4}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if a.DurationMS != DefaultSwipeDurationMS {
		t.Errorf("DurationMS = %d, want %d", a.DurationMS, DefaultSwipeDurationMS)
	}
}

func TestActionYAMLTaggedUnion(t *testing.T) {
	doc := `
- type: tap
  x: 540
  y: 960
- type: swipe
  x1: 100
  y1: 800
  x2: 100
  y2: 200
- type: key
  code: KEYCODE_BACK
- type: text
  content: "${username}"
- type: wait
  seconds: 2.5
`
	var actions []Action
	if err := yaml.Unmarshal([]byte(doc), &actions); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(actions) != 5 {
		t.Fatalf("expected 5 actions, got %d", len(actions))
	}

	if actions[0].Kind != ActionTap || actions[0].X != 540 || actions[0].Y != 960 {
		t.Errorf("unexpected tap: %+v", actions[0])
	}
	if actions[1].Kind != ActionSwipe || actions[1].Y2 != 200 {
		t.Errorf("unexpected swipe: %+v", actions[1])
	}
	if actions[3].Content != "${username}" {
		t.Errorf("placeholder content = %q", actions[3].Content)
	}
	if actions[4].Seconds != 2.5 {
		t.Errorf("wait seconds = %v", actions[4].Seconds)
	}
}

func TestMacroValidateAppliesDefaultThreshold(t *testing.T) {
	m := Macro{Name: "login"}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if m.ConfidenceThreshold != DefaultThreshold {
		t.Errorf("threshold = %v, want %v", m.ConfidenceThreshold, DefaultThreshold)
	}
}

func TestNameForTemplate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"login_button.png", "login_button"},
		{"dir/prompt.jpeg", "prompt"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := NameForTemplate(tt.in); got != tt.want {
			t.Errorf("NameForTemplate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
