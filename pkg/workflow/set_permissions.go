package workflow

import (
	"fmt"

	m "hg.sr.ht/~dchapes/mode"
)

// SetPermissions applies a chmod(1) style mode expression such as "+x",
// "go-w" or "0640" to the input file.
type SetPermissions struct {
	Input ContextInput `toml:"input"`
	Mode  string       `toml:"mode"`
}

// DefaultSetPermissions the settings written by generate
func DefaultSetPermissions() *SetPermissions {
	return &SetPermissions{
		Input: EventFilePath,
		Mode:  "u+rw,go+r",
	}
}

// Name of the action
func (s *SetPermissions) Name() string { return "SetPermissions" }

func (s *SetPermissions) validate() error {
	if _, err := m.Parse(s.Mode); err != nil {
		return fmt.Errorf("invalid mode %q: %w", s.Mode, err)
	}
	return nil
}

// Run see Action
func (s *SetPermissions) Run(ctx *ExecutionContext) bool {
	input, ok := ctx.Input(s.Input)
	if !ok {
		return ctx.HandleError("Input doesn't contain value")
	}

	set, err := m.Parse(s.Mode)
	if err != nil {
		return ctx.HandleError(err.Error())
	}
	if _, _, err = set.Chmod(input); err != nil {
		return ctx.HandleError(err.Error())
	}
	ctx.ActionFilePath = input
	return true
}
