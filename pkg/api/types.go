// Package api exposes the handler supervisor over HTTP and provides the Go
// client used by the command line.
//
// Requests and responses are JSON. Trace streams are served over a websocket
// carrying one JSON encoded trace record per message.
package api

import (
	"github.com/mproffitt/folden/pkg/handler"
	"github.com/mproffitt/folden/pkg/server"
)

// DirectoryRequest names the directory a start or stop applies to
type DirectoryRequest struct {
	Directory string `json:"directory"`
}

// ResultResponse the outcome of a mutating request
type ResultResponse struct {
	Warnings []string `json:"warnings,omitempty"`
}

// StatusResponse the state of the requested directories, keyed by path
type StatusResponse struct {
	Directories map[string]server.Summary `json:"directories"`
}

// TypesResponse the handler types the daemon accepts
type TypesResponse struct {
	Types []handler.HandlerType `json:"types"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
