package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrActionFailure an action in the pipeline reported a failure
var ErrActionFailure = errors.New("action failure")

// ContextInput names the execution context field an action reads as its input
type ContextInput string

const (
	// EventFilePath the path of the file which triggered the event
	EventFilePath ContextInput = "EventFilePath"

	// ActionFilePath the output path of the previous action
	ActionFilePath ContextInput = "ActionFilePath"
)

// UnmarshalText accepts the input names in any case
func (c *ContextInput) UnmarshalText(text []byte) error {
	switch {
	case strings.EqualFold(string(text), string(EventFilePath)):
		*c = EventFilePath
	case strings.EqualFold(string(text), string(ActionFilePath)):
		*c = ActionFilePath
	default:
		return fmt.Errorf("unknown context input %q", string(text))
	}
	return nil
}

// MarshalText writes the canonical input name
func (c ContextInput) MarshalText() ([]byte, error) {
	if c == "" {
		return []byte(EventFilePath), nil
	}
	return []byte(c), nil
}

// ExecutionContext per-event state threaded through the actions of a pipeline.
//
// A context is created for one event and discarded once the pipeline
// finishes. It is never shared between events or directories.
type ExecutionContext struct {
	EventFilePath  string
	ActionFilePath string
	Error          string
}

// NewExecutionContext a fresh context for the event at path
func NewExecutionContext(eventFilePath string) *ExecutionContext {
	return &ExecutionContext{EventFilePath: eventFilePath}
}

// Input resolves the given input against the context. The second return value
// is false when the selected field holds no value.
func (c *ExecutionContext) Input(input ContextInput) (string, bool) {
	var value string
	switch input {
	case ActionFilePath:
		value = c.ActionFilePath
	default:
		value = c.EventFilePath
	}
	return value, value != ""
}

// HandleError records message in the error slot and returns false so actions
// can `return ctx.HandleError(...)`.
func (c *ExecutionContext) HandleError(format string, args ...interface{}) bool {
	if len(args) > 0 {
		c.Error = fmt.Sprintf(format, args...)
	} else {
		c.Error = format
	}
	return false
}

// Err the recorded failure as an error, nil when none was recorded
func (c *ExecutionContext) Err() error {
	if c.Error == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrActionFailure, c.Error)
}
