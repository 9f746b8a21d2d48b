package workflow

import (
	"path/filepath"

	n "github.com/0xAX/notificator"
	log "github.com/sirupsen/logrus"
)

// pushNotification sends a desktop notification. Replaced in tests.
var pushNotification = func(title, text string) error {
	var note *n.Notificator = n.New(n.Options{
		AppName: "folden",
	})
	return note.Push(title, text, "", n.UR_NORMAL)
}

// Notify raises a desktop notification about the input file. The input path
// is passed through unchanged.
type Notify struct {
	Input   ContextInput `toml:"input"`
	Title   string       `toml:"title"`
	Message string       `toml:"message"`
}

// DefaultNotify the settings written by generate
func DefaultNotify() *Notify {
	return &Notify{
		Input:   EventFilePath,
		Title:   "folden",
		Message: "Processed $input.file_name",
	}
}

// Name of the action
func (no *Notify) Name() string { return "Notify" }

// Text the message with placeholders resolved for input
func (no *Notify) Text(ctx *ExecutionContext, input string) string {
	return format(no.Message,
		"$input.file_path", input,
		"$input.file_name", filepath.Base(input),
		"$input.directory", filepath.Dir(input),
		"$event.file_path", ctx.EventFilePath,
	)
}

// Run see Action
func (no *Notify) Run(ctx *ExecutionContext) bool {
	input, ok := ctx.Input(no.Input)
	if !ok {
		return ctx.HandleError("Input doesn't contain value")
	}
	text := no.Text(ctx, input)
	log.Infof("Sending message %s to notification system", text)
	if err := pushNotification(no.Title, text); err != nil {
		return ctx.HandleError("Unable to send notification: %s", err.Error())
	}
	ctx.ActionFilePath = input
	return true
}
