package server

import "errors"

var (
	// ErrNotRegistered no handler is registered for the directory
	ErrNotRegistered = errors.New("directory not registered")

	// ErrAlreadyRegistered the directory is registered with a different handler
	ErrAlreadyRegistered = errors.New("directory already registered")

	// ErrAlreadyRunning a handler is already running for the directory
	ErrAlreadyRunning = errors.New("handler already running")

	// ErrNotRunning no handler is running for the directory
	ErrNotRunning = errors.New("handler not running")

	// ErrUnknownHandlerType the handler type is not in the registry
	ErrUnknownHandlerType = errors.New("unknown handler type")

	// ErrHandlerLimit the daemon already runs as many handlers as it may
	ErrHandlerLimit = errors.New("concurrent handler limit reached")

	// ErrBadRequest the request is missing a field or names an unusable path
	ErrBadRequest = errors.New("bad request")

	// ErrIO a file the server depends on could not be read or written
	ErrIO = errors.New("i/o error")
)
