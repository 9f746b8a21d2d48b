package workflow

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// RunCmd runs a shell command against the input file.
//
// The placeholders $input.file_path, $input.file_name, $input.directory and
// $event.file_path are replaced with shell quoted values before the command is
// handed to `sh -c`. A zero exit status is success.
type RunCmd struct {
	Input   ContextInput `toml:"input"`
	Command string       `toml:"command"`
}

// maxOutputLine longest line of command output kept for the next action
const maxOutputLine = 1024 * 1024

// DefaultRunCmd the settings written by generate
func DefaultRunCmd() *RunCmd {
	return &RunCmd{
		Input:   EventFilePath,
		Command: "echo $input.file_path",
	}
}

// Name of the action
func (r *RunCmd) Name() string { return "RunCmd" }

func (r *RunCmd) validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return fmt.Errorf("command is required")
	}
	return nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Expand the command with the placeholders resolved for input
func (r *RunCmd) Expand(ctx *ExecutionContext, input string) string {
	return format(r.Command,
		"$input.file_path", shellQuote(input),
		"$input.file_name", shellQuote(filepath.Base(input)),
		"$input.directory", shellQuote(filepath.Dir(input)),
		"$event.file_path", shellQuote(ctx.EventFilePath),
	)
}

// Run see Action
func (r *RunCmd) Run(ctx *ExecutionContext) bool {
	input, ok := ctx.Input(r.Input)
	if !ok {
		return ctx.HandleError("Input doesn't contain value")
	}

	var (
		final   string
		line    string
		command string = r.Expand(ctx, input)
	)

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = filepath.Dir(input)
	cmd.Env = append(os.Environ(),
		"FOLDEN_INPUT_FILE_PATH="+input,
		"FOLDEN_EVENT_FILE_PATH="+ctx.EventFilePath,
	)
	reader, err := cmd.StdoutPipe()
	if err != nil {
		return ctx.HandleError("Unable to run command %q: %s", command, err.Error())
	}
	cmd.Stderr = cmd.Stdout
	done := make(chan bool)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)

	log.Debugf("Triggering command: %s", command)
	if err = cmd.Start(); err != nil {
		return ctx.HandleError("Unable to start command %q: %s", command, err.Error())
	}

	go func() {
		for scanner.Scan() {
			line = scanner.Text()
			log.Info(line)
		}
		if err := scanner.Err(); err != nil {
			log.Warnf("Discarding remaining output of %q - %s", command, err.Error())
			line = ""
		}
		// The command blocks on a full pipe until its output is read
		_, _ = io.Copy(io.Discard, reader)
		done <- true
	}()
	<-done

	if err = cmd.Wait(); err != nil {
		if line != "" {
			return ctx.HandleError("Command %q failed: %s - %s", command, err.Error(), line)
		}
		return ctx.HandleError("Command %q failed: %s", command, err.Error())
	}

	// if the last line of output is a valid system path,
	// we use that as the output for the next action
	final = input
	if candidate := strings.TrimSpace(line); candidate != "" {
		if _, err := os.Stat(candidate); err == nil {
			final = candidate
		}
	}
	log.Debugf("Using '%s' as command output", final)
	ctx.ActionFilePath = final
	return true
}
