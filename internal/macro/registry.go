package macro

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/vantrack/screenwatch/internal/events"
	"github.com/vantrack/screenwatch/internal/logging"
)

// Registry owns the macro definition files in a directory and the in-memory
// map parsed from them. It is the sole writer of macro state; the polling
// goroutine and the operator surface both read through it, so every map
// access happens under one lock.
type Registry struct {
	dir string
	bus events.EventBus
	log *logging.Logger

	mu     sync.RWMutex
	macros map[string]*Macro
}

// NewRegistry creates a registry over a macros directory
func NewRegistry(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create macros directory: %w", err)
	}
	return &Registry{
		dir:    dir,
		log:    logging.New("registry"),
		macros: make(map[string]*Macro),
	}, nil
}

// WithEventBus attaches a bus for macro lifecycle events
func (r *Registry) WithEventBus(bus events.EventBus) *Registry {
	r.bus = bus
	return r
}

// Dir returns the macros directory path
func (r *Registry) Dir() string {
	return r.dir
}

// Load clears the in-memory map and parses every definition file in the
// macros directory. A file that fails to parse is logged and skipped; it
// does not abort the batch.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("failed to read macros directory %s: %w", r.dir, err)
	}

	loaded := make(map[string]*Macro)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		m, err := r.parseFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			r.log.Error(fmt.Sprintf("skipping macro file %s", entry.Name()), err)
			continue
		}
		loaded[m.Name] = m
	}

	r.mu.Lock()
	r.macros = loaded
	r.mu.Unlock()

	r.log.Infof("loaded %d macros from %s", len(loaded), r.dir)
	return nil
}

// Reload is an explicit clear-and-load so a running orchestrator can pick
// up externally edited definitions without restart
func (r *Registry) Reload() error {
	if err := r.Load(); err != nil {
		return err
	}
	if r.bus != nil {
		r.bus.Publish(events.Event{
			Type:   events.EventTypeMacroReloaded,
			Source: "registry",
			Data:   map[string]interface{}{"count": r.Count()},
		})
	}
	return nil
}

// Save validates, persists, and registers a macro. The definition file is
// written atomically (temp file + rename) so a concurrent reload never
// observes a partial write of our own making.
func (r *Registry) Save(m *Macro) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("invalid macro: %w", err)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal macro %s: %w", m.Name, err)
	}

	path := r.pathFor(m.Name)
	if err := atomicWrite(path, data); err != nil {
		return fmt.Errorf("failed to write macro %s: %w", m.Name, err)
	}

	r.mu.Lock()
	r.macros[m.Name] = m
	r.mu.Unlock()

	r.log.Infof("saved macro %s", m.Name)
	return nil
}

// Delete removes a macro's definition file and map entry
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	delete(r.macros, name)
	r.mu.Unlock()

	if err := os.Remove(r.pathFor(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove macro file for %s: %w", name, err)
	}
	return nil
}

// Get returns a copy of the named macro
func (r *Registry) Get(name string) (Macro, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.macros[name]
	if !ok {
		return Macro{}, false
	}
	return *m, true
}

// Has reports whether a macro exists
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.macros[name]
	return ok
}

// List returns the macro names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.macros))
	for name := range r.macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of loaded macros
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.macros)
}

// Snapshot returns a copy of the macro map for read-only iteration
func (r *Registry) Snapshot() map[string]Macro {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Macro, len(r.macros))
	for name, m := range r.macros {
		out[name] = *m
	}
	return out
}

// EnsureMacroFor synthesizes and persists a starter macro for a template
// image that has no matching macro yet. New macros are inactive with an
// empty action list and a strict confidence threshold, giving operators a
// starting point without any risk of accidental auto-execution.
func (r *Registry) EnsureMacroFor(templateFile string) (Macro, bool, error) {
	name := NameForTemplate(templateFile)

	if m, ok := r.Get(name); ok {
		return m, false, nil
	}

	m := &Macro{
		Name:                name,
		Description:         fmt.Sprintf("Auto-generated macro for %s", templateFile),
		TriggerImage:        templateFile,
		IsActive:            false,
		ConfidenceThreshold: AutoCreateThreshold,
		Actions:             []Action{},
	}

	if err := r.Save(m); err != nil {
		return Macro{}, false, err
	}

	r.log.Infof("created macro %s for template %s (threshold %.2f, inactive)",
		name, templateFile, AutoCreateThreshold)
	if r.bus != nil {
		r.bus.Publish(events.NewMacroCreatedEvent(name, templateFile))
	}

	return *m, true, nil
}

func (r *Registry) pathFor(name string) string {
	return filepath.Join(r.dir, name+".yaml")
}

func (r *Registry) parseFile(path string) (*Macro, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var m Macro
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	// Filename stem wins as the canonical name when the record omits it
	if m.Name == "" {
		m.Name = NameForTemplate(path)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// atomicWrite writes content to a temp file in the target directory and
// renames it into place
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".screenwatch-tmp-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
