// Package workflow loads workflow configs and runs their action pipelines
// against filesystem events.
package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalidConfig the workflow config could not be parsed or is incomplete
var ErrInvalidConfig = errors.New("invalid workflow config")

// Config a workflow: which events to react to and the actions to run
type Config struct {
	WatchRecursive                bool      `toml:"watch_recursive"`
	ApplyOnStartupOnExistingFiles bool      `toml:"apply_on_startup_on_existing_files"`
	PanicHandlerOnError           bool      `toml:"panic_handler_on_error"`
	Event                         Event     `toml:"event"`
	Actions                       []Actions `toml:"actions"`

	pipeline Pipeline
}

// Load reads and validates the workflow config at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a TOML workflow config
func Parse(data []byte) (*Config, error) {
	var c Config
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	if err := c.resolve(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, err.Error())
	}
	return &c, nil
}

func (c *Config) resolve() error {
	if err := c.Event.compile(); err != nil {
		return err
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("workflow must define at least one action")
	}
	c.pipeline = make(Pipeline, 0, len(c.Actions))
	for i, a := range c.Actions {
		action, err := a.Action()
		if err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
		if v, ok := action.(validator); ok {
			if err := v.validate(); err != nil {
				return fmt.Errorf("actions[%d] %s: %w", i, action.Name(), err)
			}
		}
		c.pipeline = append(c.pipeline, action)
	}
	return nil
}

type validator interface {
	validate() error
}

// Pipeline the resolved actions in declared order
func (c *Config) Pipeline() Pipeline {
	return c.pipeline
}

// Execute runs the pipeline for one event. See Pipeline.Execute.
func (c *Config) Execute(ctx *ExecutionContext) []ActionOutcome {
	return c.pipeline.Execute(ctx)
}

// Default builds a workflow config from event and action names, falling back
// to a create event and a single MoveToDir action when none are given.
func Default(events, actions []string) (*Config, error) {
	c := &Config{
		WatchRecursive:                false,
		ApplyOnStartupOnExistingFiles: false,
		PanicHandlerOnError:           false,
	}
	if len(events) == 0 {
		events = []string{string(EventCreate)}
	}
	for _, e := range events {
		kind, err := ParseEventKind(e)
		if err != nil {
			return nil, err
		}
		c.Event.Events = append(c.Event.Events, kind)
	}
	if len(actions) == 0 {
		actions = []string{"MoveToDir"}
	}
	for _, name := range actions {
		a, err := NewActions(name)
		if err != nil {
			return nil, err
		}
		c.Actions = append(c.Actions, a)
	}
	if err := c.resolve(); err != nil {
		return nil, err
	}
	return c, nil
}

// Bytes the TOML form of the config
func (c *Config) Bytes() ([]byte, error) {
	return toml.Marshal(c)
}

// Generate writes the config to path, creating parent directories
func (c *Config) Generate(path string) error {
	data, err := c.Bytes()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
