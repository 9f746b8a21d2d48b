package api

import (
	"errors"
	"net/http"

	"github.com/mproffitt/folden/pkg/server"
	"github.com/mproffitt/folden/pkg/workflow"
)

type errorCode struct {
	err    error
	code   string
	status int
}

// errorCodes maps supervisor errors onto the wire. The first match wins.
var errorCodes = []errorCode{
	{server.ErrNotRegistered, "not_registered", http.StatusNotFound},
	{server.ErrAlreadyRegistered, "already_registered", http.StatusConflict},
	{server.ErrAlreadyRunning, "already_running", http.StatusConflict},
	{server.ErrNotRunning, "not_running", http.StatusConflict},
	{server.ErrHandlerLimit, "handler_limit", http.StatusConflict},
	{server.ErrUnknownHandlerType, "unknown_handler_type", http.StatusBadRequest},
	{server.ErrBadRequest, "bad_request", http.StatusBadRequest},
	{workflow.ErrInvalidConfig, "invalid_config", http.StatusBadRequest},
	{server.ErrIO, "io_error", http.StatusInternalServerError},
}

const codeInternal = "internal"

func classify(err error) (code string, status int) {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code, c.status
		}
	}
	return codeInternal, http.StatusInternalServerError
}

// Error an error reported by the daemon.
//
// It unwraps to the matching sentinel so callers can test it with errors.Is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap the sentinel error for the code, nil for unknown codes
func (e *Error) Unwrap() error {
	for _, c := range errorCodes {
		if c.code == e.Code {
			return c.err
		}
	}
	return nil
}
