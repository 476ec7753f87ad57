// Package manifest handles stately.toml configuration: a declarative
// description of classes, their states and their hooks, materialized into
// an engine at startup. Method bodies are code and stay out of the
// manifest; hook actions are therefore always selector names.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/stately-go/stately/mixin"
)

// FileName is the manifest file name looked up in a project directory.
const FileName = "stately.toml"

// Manifest represents a stately.toml configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Classes []Class `toml:"class"`
	Hooks   []Hook  `toml:"hook"`

	// Dir is the directory containing the stately.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Class declares one class with its states.
type Class struct {
	Name         string   `toml:"name"`
	Superclass   string   `toml:"superclass"`
	InstanceVars []string `toml:"instance-vars"`
	States       []State  `toml:"state"`
}

// State declares one state on a class. Parent names another state of the
// same class (a sub-state); empty means root.
type State struct {
	Name   string `toml:"name"`
	Parent string `toml:"parent"`
}

// Hook declares one before/after action.
type Hook struct {
	Class  string `toml:"class"`
	Phase  string `toml:"phase"`
	Method string `toml:"method"`
	Action string `toml:"action"`
}

// Load parses a stately.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	m.Dir = dir

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Validate checks internal consistency: names present, superclass and hook
// targets declared, phases well formed, state parents resolvable.
func (m *Manifest) Validate() error {
	if m.Project.Name == "" {
		return fmt.Errorf("project.name is required")
	}

	declared := make(map[string]bool, len(m.Classes))
	for i := range m.Classes {
		c := &m.Classes[i]
		if c.Name == "" {
			return fmt.Errorf("class %d: name is required", i)
		}
		if declared[c.Name] {
			return fmt.Errorf("class %s declared twice", c.Name)
		}
		declared[c.Name] = true
	}

	for _, c := range m.Classes {
		if c.Superclass != "" && !declared[c.Superclass] {
			return fmt.Errorf("class %s: unknown superclass %s", c.Name, c.Superclass)
		}
		stateNames := make(map[string]bool, len(c.States))
		for _, s := range c.States {
			if s.Name == "" {
				return fmt.Errorf("class %s: state name is required", c.Name)
			}
			if stateNames[s.Name] {
				return fmt.Errorf("class %s: state %s declared twice", c.Name, s.Name)
			}
			stateNames[s.Name] = true
		}
		for _, s := range c.States {
			if s.Parent != "" && !stateNames[s.Parent] {
				return fmt.Errorf("class %s: state %s: unknown parent state %s", c.Name, s.Name, s.Parent)
			}
		}
	}

	for i, h := range m.Hooks {
		if !declared[h.Class] {
			return fmt.Errorf("hook %d: unknown class %s", i, h.Class)
		}
		if _, err := mixin.ParsePhase(h.Phase); err != nil {
			return fmt.Errorf("hook %d: %w", i, err)
		}
		if h.Method == "" || h.Action == "" {
			return fmt.Errorf("hook %d: method and action are required", i)
		}
	}
	return nil
}

// Build materializes the manifest into an engine: classes in dependency
// order, then states (roots before sub-states), then hooks. Method bodies
// are registered by the host after Build.
func (m *Manifest) Build(e *mixin.Engine) error {
	byName := make(map[string]*Class, len(m.Classes))
	for i := range m.Classes {
		byName[m.Classes[i].Name] = &m.Classes[i]
	}
	built := make(map[string]*mixin.Class, len(m.Classes))

	var define func(c *Class) (*mixin.Class, error)
	define = func(c *Class) (*mixin.Class, error) {
		if cls := built[c.Name]; cls != nil {
			return cls, nil
		}
		var super *mixin.Class
		if c.Superclass != "" {
			var err error
			if super, err = define(byName[c.Superclass]); err != nil {
				return nil, err
			}
		}
		cls := e.NewClassWithInstVars(c.Name, super, c.InstanceVars)
		built[c.Name] = cls

		// Root states first so sub-state parents resolve.
		for _, s := range c.States {
			if s.Parent == "" {
				if _, err := e.AddState(cls, s.Name, nil); err != nil {
					return nil, fmt.Errorf("class %s: %w", c.Name, err)
				}
			}
		}
		for _, s := range c.States {
			if s.Parent != "" {
				parent, err := e.AddState(cls, s.Parent, nil)
				if err != nil {
					return nil, fmt.Errorf("class %s: %w", c.Name, err)
				}
				if _, err := e.AddState(cls, s.Name, parent); err != nil {
					return nil, fmt.Errorf("class %s: %w", c.Name, err)
				}
			}
		}
		return cls, nil
	}

	for i := range m.Classes {
		if _, err := define(&m.Classes[i]); err != nil {
			return err
		}
	}

	for _, h := range m.Hooks {
		phase, err := mixin.ParsePhase(h.Phase)
		if err != nil {
			return err
		}
		if err := e.AddHook(built[h.Class], phase, h.Method, mixin.Named(h.Action)); err != nil {
			return fmt.Errorf("hook on %s>>%s: %w", h.Class, h.Method, err)
		}
	}
	return nil
}
