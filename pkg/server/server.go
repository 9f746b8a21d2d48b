// Package server owns the directory mapping and supervises the handler
// workers attached to it.
//
// All access to the mapping goes through a single sync.RWMutex. Mutations take
// the write lock, status and trace take the read lock. Messages to workers are
// always sent after the lock has been released.
package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mproffitt/folden/pkg/config"
	"github.com/mproffitt/folden/pkg/handler"
	"github.com/mproffitt/folden/pkg/mapping"
	log "github.com/sirupsen/logrus"
)

// Server the handler supervisor
type Server struct {
	config   *config.Config
	registry handler.Registry

	mu      sync.RWMutex
	mapping *mapping.Mapping

	// saveMu orders snapshot writes so the file always holds the newest table
	saveMu sync.Mutex
}

// Result non fatal problems raised while serving a request
type Result struct {
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Result) merge(other Result) {
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// New Create a server with an empty mapping
//
// Arguments:
//
// - c        *config.Config   The daemon configuration
// - registry handler.Registry The handler types the server accepts, nil for the built in set
//
// Return:
//
// - *Server
func New(c *config.Config, registry handler.Registry) *Server {
	if c == nil {
		c = config.Default()
	}
	if registry == nil {
		registry = handler.DefaultRegistry
	}
	return &Server{
		config:   c,
		registry: registry,
		mapping:  mapping.New(),
	}
}

// Registry the handler types this server accepts
func (s *Server) Registry() handler.Registry {
	return s.registry
}

// persist writes the mapping snapshot when the strategy asks for it. Failures
// are returned as warnings, the in memory table stays authoritative.
func (s *Server) persist() (res Result) {
	if !s.config.MappingStatusStrategy.Persists() {
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := s.mapping.Bytes()
	s.mu.RUnlock()

	if err == nil {
		err = writeFileAtomic(s.config.MappingStatePath, data, 0o600)
	}
	if err != nil {
		log.Errorf("Unable to save mapping to %s - %s", s.config.MappingStatePath, err.Error())
		res.Warnings = append(res.Warnings, fmt.Sprintf("mapping not saved: %s", err.Error()))
	}
	return
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: create %s: %s", ErrIO, dir, err.Error())
	}
	tmp, err := os.CreateTemp(dir, ".mapping-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %s", ErrIO, err.Error())
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write temp file: %s", ErrIO, err.Error())
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: chmod temp file: %s", ErrIO, err.Error())
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close temp file: %s", ErrIO, err.Error())
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename temp file: %s", ErrIO, err.Error())
	}
	return nil
}

// absolute cleans a client supplied path
func absolute(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: path is required", ErrBadRequest)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	return abs, nil
}

// directory resolves path and checks it is an existing directory
func directory(path string) (string, error) {
	abs, err := absolute(path)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBadRequest, err.Error())
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrBadRequest, abs)
	}
	return abs, nil
}
