package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Action one step of a workflow pipeline.
//
// Run reads its configured input from the context, performs its effect and on
// success sets ActionFilePath to its output and returns true. On failure it
// returns the result of ctx.HandleError.
type Action interface {
	Name() string
	Run(ctx *ExecutionContext) bool
}

// Actions the closed set of action variants. Exactly one field is set per
// entry, which in the config file reads as
//
//	[[actions]]
//	[actions.MoveToDir]
//	directory_path = "/srv/sorted"
type Actions struct {
	MoveToDir      *MoveToDir      `toml:"MoveToDir,omitempty"`
	RunCmd         *RunCmd         `toml:"RunCmd,omitempty"`
	ExtractArchive *ExtractArchive `toml:"ExtractArchive,omitempty"`
	SetPermissions *SetPermissions `toml:"SetPermissions,omitempty"`
	Notify         *Notify         `toml:"Notify,omitempty"`
}

// ActionTypes names of every action variant
var ActionTypes = []string{
	"MoveToDir",
	"RunCmd",
	"ExtractArchive",
	"SetPermissions",
	"Notify",
}

// Action resolves the variant held by the entry
func (a Actions) Action() (Action, error) {
	var set []Action
	if a.MoveToDir != nil {
		set = append(set, a.MoveToDir)
	}
	if a.RunCmd != nil {
		set = append(set, a.RunCmd)
	}
	if a.ExtractArchive != nil {
		set = append(set, a.ExtractArchive)
	}
	if a.SetPermissions != nil {
		set = append(set, a.SetPermissions)
	}
	if a.Notify != nil {
		set = append(set, a.Notify)
	}
	switch len(set) {
	case 0:
		return nil, fmt.Errorf("action entry has no action type")
	case 1:
		return set[0], nil
	}
	names := make([]string, len(set))
	for i, s := range set {
		names[i] = s.Name()
	}
	return nil, fmt.Errorf("action entry sets more than one action type: %s", strings.Join(names, ", "))
}

// NewActions the default configuration for the named action variant
func NewActions(name string) (Actions, error) {
	switch strings.ToLower(name) {
	case "movetodir", "move-to-dir":
		return Actions{MoveToDir: DefaultMoveToDir()}, nil
	case "runcmd", "run-cmd":
		return Actions{RunCmd: DefaultRunCmd()}, nil
	case "extractarchive", "extract-archive":
		return Actions{ExtractArchive: DefaultExtractArchive()}, nil
	case "setpermissions", "set-permissions":
		return Actions{SetPermissions: DefaultSetPermissions()}, nil
	case "notify":
		return Actions{Notify: DefaultNotify()}, nil
	}
	return Actions{}, fmt.Errorf("unknown action %q", name)
}

// ActionOutcome the result of running one action for one event
type ActionOutcome struct {
	ActionName   string    `json:"action_name"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Time         time.Time `json:"time"`
}

// Pipeline an ordered list of actions
type Pipeline []Action

// Execute runs the actions in order against ctx.
//
// The first failing action aborts the remaining ones. Actions already applied
// are not rolled back. One outcome is returned per action that ran.
func (p Pipeline) Execute(ctx *ExecutionContext) []ActionOutcome {
	outcomes := make([]ActionOutcome, 0, len(p))
	for _, action := range p {
		ok := action.Run(ctx)
		outcome := ActionOutcome{
			ActionName: action.Name(),
			Success:    ok,
			Time:       time.Now(),
		}
		if !ok {
			outcome.ErrorMessage = ctx.Error
			outcomes = append(outcomes, outcome)
			break
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// Succeeded true when every outcome succeeded
func Succeeded(outcomes []ActionOutcome) bool {
	for _, o := range outcomes {
		if !o.Success {
			return false
		}
	}
	return true
}
