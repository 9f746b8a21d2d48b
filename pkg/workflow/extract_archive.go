package workflow

import (
	"context"
	"fmt"
	"os"

	a "github.com/codeclysm/extract/v3"
)

// ExtractArchive unpacks a zip, tar, gzip, bzip2 or xz archive into a directory
type ExtractArchive struct {
	Input               ContextInput `toml:"input"`
	DirectoryPath       string       `toml:"directory_path"`
	KeepInputFileIntact bool         `toml:"keep_input_file_intact"`
}

// DefaultExtractArchive the settings written by generate
func DefaultExtractArchive() *ExtractArchive {
	return &ExtractArchive{
		Input:               EventFilePath,
		DirectoryPath:       "output_dir_path",
		KeepInputFileIntact: true,
	}
}

// Name of the action
func (e *ExtractArchive) Name() string { return "ExtractArchive" }

func (e *ExtractArchive) validate() error {
	if e.DirectoryPath == "" {
		return fmt.Errorf("directory_path is required")
	}
	return nil
}

// Run see Action
func (e *ExtractArchive) Run(ctx *ExecutionContext) bool {
	input, ok := ctx.Input(e.Input)
	if !ok {
		return ctx.HandleError("Input doesn't contain value")
	}

	if err := os.MkdirAll(e.DirectoryPath, 0o750); err != nil {
		return ctx.HandleError(err.Error())
	}

	file, err := os.Open(input)
	if err != nil {
		return ctx.HandleError(err.Error())
	}
	err = a.Archive(context.TODO(), file, e.DirectoryPath, nil)
	file.Close()
	if err != nil {
		return ctx.HandleError("Unable to extract %s: %s", input, err.Error())
	}

	ctx.ActionFilePath = e.DirectoryPath
	if !e.KeepInputFileIntact {
		if err := os.Remove(input); err != nil {
			return ctx.HandleError(err.Error())
		}
	}
	return true
}
