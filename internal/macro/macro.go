// Package macro holds the persisted automation units: definition records,
// the on-disk registry, and the action executor.
package macro

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultThreshold applies to macros that don't set their own
	DefaultThreshold = 0.8
	// AutoCreateThreshold is the deliberately strict threshold for macros
	// synthesized from unclaimed template images
	AutoCreateThreshold = 0.95
)

// UserRef associates a stored user record with a macro, for text-action
// placeholder substitution
type UserRef struct {
	Username string `yaml:"username"`
}

// Macro is a named, persisted sequence of input-injection actions, gated by
// an optional trigger template and activation flag. One definition file per
// macro; the filename stem is the macro name.
type Macro struct {
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description,omitempty"`
	TriggerImage        string   `yaml:"trigger_image,omitempty"`
	IsActive            bool     `yaml:"is_active"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	Actions             []Action `yaml:"actions"`
	Users               []UserRef `yaml:"users,omitempty"`
}

// Validate checks the macro record and applies defaults
func (m *Macro) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("macro name cannot be empty")
	}
	if m.ConfidenceThreshold == 0 {
		m.ConfidenceThreshold = DefaultThreshold
	}
	if m.ConfidenceThreshold < 0 || m.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1]: %v", m.ConfidenceThreshold)
	}
	for i := range m.Actions {
		if err := m.Actions[i].Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
	}
	return nil
}

// NameForTemplate derives the macro name associated with a template image
// filename: the stem without extension
func NameForTemplate(templateFile string) string {
	base := filepath.Base(templateFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
