package macro

import (
	"errors"
	"fmt"
	"image"
	"testing"
	"time"

	"github.com/vantrack/screenwatch/internal/cv"
)

// fakeDevice records injected input commands
type fakeDevice struct {
	commands []string
	failAt   int // 1-based index of the command that fails; 0 = never
}

func (f *fakeDevice) record(cmd string) error {
	f.commands = append(f.commands, cmd)
	if f.failAt > 0 && len(f.commands) == f.failAt {
		return errors.New("injection failed")
	}
	return nil
}

func (f *fakeDevice) Tap(x, y int) error {
	return f.record(fmt.Sprintf("input tap %d %d", x, y))
}

func (f *fakeDevice) Swipe(x1, y1, x2, y2, duration int) error {
	return f.record(fmt.Sprintf("input swipe %d %d %d %d %d", x1, y1, x2, y2, duration))
}

func (f *fakeDevice) Key(code string) error {
	return f.record("input keyevent " + code)
}

func (f *fakeDevice) Text(content string) error {
	return f.record(fmt.Sprintf("input text '%s'", content))
}

// fakeMatcher returns a fixed confidence for every template
type fakeMatcher struct {
	confidence float64
	err        error
}

func (f *fakeMatcher) Match(frame image.Image, name string) (cv.MatchResult, error) {
	if f.err != nil {
		return cv.MatchResult{}, f.err
	}
	return cv.MatchResult{Template: name, Confidence: f.confidence}, nil
}

type fakeCreds struct {
	users       map[string]string
	defaultUser string
}

func (f *fakeCreds) Lookup(username string) (string, bool) {
	pw, ok := f.users[username]
	return pw, ok
}

func (f *fakeCreds) Default() (string, string, bool) {
	if f.defaultUser == "" {
		return "", "", false
	}
	return f.defaultUser, f.users[f.defaultUser], true
}

func newTestExecutor(t *testing.T, matcher TriggerMatcher) (*Executor, *Registry, *fakeDevice) {
	t.Helper()
	r := newTestRegistry(t)
	device := &fakeDevice{}
	e := NewExecutor(r, device, matcher)
	e.sleep = func(time.Duration) {}
	return e, r, device
}

func TestExecuteRunsActionsInOrder(t *testing.T) {
	e, r, device := newTestExecutor(t, &fakeMatcher{confidence: 1.0})

	err := r.Save(&Macro{
		Name:     "seq",
		IsActive: true,
		Actions: []Action{
			{Kind: ActionTap, X: 1, Y: 2},
			{Kind: ActionKey, Code: "KEYCODE_ENTER"},
			{Kind: ActionSwipe, X1: 0, Y1: 0, X2: 9, Y2: 9, DurationMS: 100},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ran, err := e.Execute("seq", nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !ran {
		t.Fatal("expected macro to run")
	}

	want := []string{
		"input tap 1 2",
		"input keyevent KEYCODE_ENTER",
		"input swipe 0 0 9 9 100",
	}
	if len(device.commands) != len(want) {
		t.Fatalf("commands = %v, want %v", device.commands, want)
	}
	for i := range want {
		if device.commands[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, device.commands[i], want[i])
		}
	}
}

func TestExecuteTriggerRevalidation(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 4, 4))

	tests := []struct {
		name       string
		confidence float64
		wantRan    bool
		wantCmds   int
	}{
		{name: "above threshold runs", confidence: 0.95, wantRan: true, wantCmds: 1},
		{name: "below threshold skips", confidence: 0.85, wantRan: false, wantCmds: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, r, device := newTestExecutor(t, &fakeMatcher{confidence: tt.confidence})

			err := r.Save(&Macro{
				Name:                "guarded",
				TriggerImage:        "guarded.png",
				IsActive:            true,
				ConfidenceThreshold: 0.9,
				Actions:             []Action{{Kind: ActionTap, X: 100, Y: 200}},
			})
			if err != nil {
				t.Fatal(err)
			}

			ran, err := e.Execute("guarded", frame)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if ran != tt.wantRan {
				t.Errorf("ran = %v, want %v", ran, tt.wantRan)
			}
			if len(device.commands) != tt.wantCmds {
				t.Errorf("commands = %v, want %d commands", device.commands, tt.wantCmds)
			}
		})
	}
}

func TestExecuteInactiveMacroHasNoSideEffects(t *testing.T) {
	e, r, device := newTestExecutor(t, &fakeMatcher{confidence: 1.0})

	err := r.Save(&Macro{
		Name:     "dormant",
		IsActive: false,
		Actions:  []Action{{Kind: ActionTap, X: 5, Y: 5}},
	})
	if err != nil {
		t.Fatal(err)
	}

	ran, err := e.Execute("dormant", nil)
	if err != nil {
		t.Fatalf("inactive macro should skip cleanly, got %v", err)
	}
	if ran {
		t.Error("inactive macro must not run")
	}
	if len(device.commands) != 0 {
		t.Errorf("inactive macro injected input: %v", device.commands)
	}
}

func TestExecuteMissingMacroIsNotAnError(t *testing.T) {
	e, _, device := newTestExecutor(t, nil)

	ran, err := e.Execute("absent", nil)
	if err != nil {
		t.Fatalf("missing macro should skip cleanly, got %v", err)
	}
	if ran || len(device.commands) != 0 {
		t.Error("missing macro must not run")
	}
}

func TestExecuteAbortsOnFirstFailure(t *testing.T) {
	e, r, device := newTestExecutor(t, nil)
	device.failAt = 2

	err := r.Save(&Macro{
		Name:     "brittle",
		IsActive: true,
		Actions: []Action{
			{Kind: ActionTap, X: 1, Y: 1},
			{Kind: ActionTap, X: 2, Y: 2},
			{Kind: ActionTap, X: 3, Y: 3},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	ran, err := e.Execute("brittle", nil)
	if err == nil {
		t.Fatal("expected execution error")
	}
	if ran {
		t.Error("failed execution must report ran=false")
	}
	// The third action never runs; no rollback of the first
	if len(device.commands) != 2 {
		t.Errorf("commands = %v, want exactly 2 before abort", device.commands)
	}
}

func TestExecuteSubstitutesCredentials(t *testing.T) {
	e, r, device := newTestExecutor(t, nil)
	e.WithCredentials(&fakeCreds{
		users:       map[string]string{"alice": "s3cret", "bob": "hunter2"},
		defaultUser: "alice",
	})

	err := r.Save(&Macro{
		Name:     "login",
		IsActive: true,
		Users:    []UserRef{{Username: "bob"}},
		Actions: []Action{
			{Kind: ActionText, Content: "${username}"},
			{Kind: ActionText, Content: "${password}"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Execute("login", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if device.commands[0] != "input text 'bob'" {
		t.Errorf("username injection = %q", device.commands[0])
	}
	if device.commands[1] != "input text 'hunter2'" {
		t.Errorf("password injection = %q", device.commands[1])
	}
}

func TestExecuteDefaultUserFallback(t *testing.T) {
	e, r, device := newTestExecutor(t, nil)
	e.WithCredentials(&fakeCreds{
		users:       map[string]string{"alice": "s3cret"},
		defaultUser: "alice",
	})

	err := r.Save(&Macro{
		Name:     "login",
		IsActive: true,
		Actions:  []Action{{Kind: ActionText, Content: "user=${username}"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Execute("login", nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if device.commands[0] != "input text 'user=alice'" {
		t.Errorf("injection = %q", device.commands[0])
	}
}

func TestExecutePlaceholdersWithoutCredentialSource(t *testing.T) {
	e, r, device := newTestExecutor(t, nil)

	err := r.Save(&Macro{
		Name:     "login",
		IsActive: true,
		Actions:  []Action{{Kind: ActionText, Content: "${password}"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Execute("login", nil); err == nil {
		t.Fatal("expected error when placeholders have no credential source")
	}
	if len(device.commands) != 0 {
		t.Errorf("no input should be injected, got %v", device.commands)
	}
}

func TestExecuteTriggerCheckError(t *testing.T) {
	e, r, device := newTestExecutor(t, &fakeMatcher{err: errors.New("template missing")})

	err := r.Save(&Macro{
		Name:         "guarded",
		TriggerImage: "guarded.png",
		IsActive:     true,
		Actions:      []Action{{Kind: ActionTap, X: 1, Y: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Execute("guarded", image.NewGray(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatal("expected trigger check error")
	}
	if len(device.commands) != 0 {
		t.Errorf("no input should be injected when the trigger check errors, got %v", device.commands)
	}
}
