package workflow

import (
	"fmt"
	"os"
	"path/filepath"
)

// MoveToDir copies the input file into a directory and, unless asked to keep
// it, removes the original once the copy succeeded.
type MoveToDir struct {
	Input                   ContextInput `toml:"input"`
	DirectoryPath           string       `toml:"directory_path"`
	RequiresDirectoryExists bool         `toml:"requires_directory_exists"`
	ReplaceOlderFiles       bool         `toml:"replace_older_files"`
	KeepInputFileIntact     bool         `toml:"keep_input_file_intact"`
	DateSubdirectory        bool         `toml:"date_subdirectory"`
}

// DefaultMoveToDir the settings written by generate
func DefaultMoveToDir() *MoveToDir {
	return &MoveToDir{
		Input:                   EventFilePath,
		DirectoryPath:           "output_dir_path",
		RequiresDirectoryExists: false,
		ReplaceOlderFiles:       true,
		KeepInputFileIntact:     false,
	}
}

// Name of the action
func (m *MoveToDir) Name() string { return "MoveToDir" }

func (m *MoveToDir) validate() error {
	if m.DirectoryPath == "" {
		return fmt.Errorf("directory_path is required")
	}
	return nil
}

// Run see Action
func (m *MoveToDir) Run(ctx *ExecutionContext) bool {
	input, ok := ctx.Input(m.Input)
	if !ok {
		return ctx.HandleError("Input doesn't contain value")
	}
	name := filepath.Base(input)
	if name == "." || name == string(filepath.Separator) {
		return ctx.HandleError("Path can't be parsed as file")
	}

	if !isDir(m.DirectoryPath) {
		if m.RequiresDirectoryExists {
			return ctx.HandleError("Directory required to exist")
		}
		if err := os.MkdirAll(m.DirectoryPath, 0o750); err != nil {
			return ctx.HandleError(err.Error())
		}
	}

	var dest string = m.DirectoryPath
	if m.DateSubdirectory {
		date, err := dateDirectory(input)
		if err != nil {
			return ctx.HandleError(err.Error())
		}
		dest = filepath.Join(dest, date)
		if err := os.MkdirAll(dest, 0o750); err != nil {
			return ctx.HandleError(err.Error())
		}
	}

	newFilePath := filepath.Join(dest, name)
	if samePath(input, newFilePath) {
		ctx.ActionFilePath = newFilePath
		return true
	}
	if isFile(newFilePath) && !m.ReplaceOlderFiles {
		return ctx.HandleError("Can't replace older file")
	}

	if err := pcopy(input, newFilePath); err != nil {
		return ctx.HandleError(err.Error())
	}

	// The copy exists from here on so the context always points at it
	ctx.ActionFilePath = newFilePath
	if !m.KeepInputFileIntact {
		if err := os.Remove(input); err != nil {
			return ctx.HandleError(err.Error())
		}
	}
	return true
}
