package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mproffitt/folden/pkg/handler"
	"github.com/mproffitt/folden/pkg/mapping"
	"github.com/mproffitt/folden/pkg/workflow"
	log "github.com/sirupsen/logrus"
)

// RegisterRequest binds a directory to a handler type and workflow config
type RegisterRequest struct {
	Directory         string `json:"directory"`
	HandlerTypeName   string `json:"handler_type_name"`
	HandlerConfigPath string `json:"handler_config_path"`

	// Overwrite replaces an existing registration with a different handler
	Overwrite bool `json:"overwrite,omitempty"`

	// Start the handler once registered
	Start bool `json:"start,omitempty"`
}

// ModifyRequest changes the handler of a registered directory. Empty fields
// keep their current value.
type ModifyRequest struct {
	Directory         string `json:"directory"`
	HandlerTypeName   string `json:"handler_type_name,omitempty"`
	HandlerConfigPath string `json:"handler_config_path,omitempty"`
}

// Summary the state of one registered directory
type Summary struct {
	Running           bool   `json:"running"`
	State             string `json:"state"`
	HandlerTypeName   string `json:"handler_type_name"`
	HandlerConfigPath string `json:"handler_config_path"`
}

// Register Adds a directory to the mapping
//
// A new entry is stopped. Registering the same handler again succeeds without
// change. A different handler replaces the registration only when Overwrite
// is set, a running worker is left running with its old workflow until it is
// modified or stopped.
//
// Arguments:
//
// - ctx context.Context Bounds the optional start
// - req RegisterRequest
//
// Return:
//
// - Result Any warnings raised on the way
// - error  ErrBadRequest, ErrUnknownHandlerType, ErrAlreadyRegistered or a start error
func (s *Server) Register(ctx context.Context, req RegisterRequest) (res Result, err error) {
	var dir, configPath string
	if dir, err = directory(req.Directory); err != nil {
		return
	}
	if configPath, err = absolute(req.HandlerConfigPath); err != nil {
		return
	}
	ht, ok := s.registry.Lookup(req.HandlerTypeName)
	if !ok {
		return res, fmt.Errorf("%w: %q", ErrUnknownHandlerType, req.HandlerTypeName)
	}

	logger := log.WithField("directory", dir)
	var changed bool = true

	s.mu.Lock()
	entry, exists := s.mapping.Get(dir)
	switch {
	case !exists:
		entry = mapping.HandlerMapping{}
	case entry.HandlerTypeName == ht.Name && entry.HandlerConfigPath == configPath:
		changed = false
	case !req.Overwrite:
		s.mu.Unlock()
		return res, fmt.Errorf("%w: %s is handled by %s", ErrAlreadyRegistered, dir, entry.HandlerTypeName)
	}
	if changed {
		entry.HandlerTypeName = ht.Name
		entry.HandlerConfigPath = configPath
		s.mapping.Set(dir, entry)
	}
	s.mu.Unlock()

	if changed {
		logger.Infof("Registered handler %s with config %s", ht.Name, configPath)
		res.merge(s.persist())
	}

	if req.Start {
		var started Result
		started, err = s.Start(ctx, dir)
		res.merge(started)
		if errors.Is(err, ErrAlreadyRunning) {
			err = nil
		}
	}
	return
}

// Start Spawns the worker of a registered directory
//
// The workflow is loaded and the watch set up without holding the table lock.
// The entry is checked again under the write lock before the worker is
// attached, a registration that changed in the meantime is started again with
// its new settings.
//
// Arguments:
//
// - ctx context.Context
// - dir string The registered directory
//
// Return:
//
// - Result Recursion warnings found in the workflow
// - error  ErrNotRegistered, ErrAlreadyRunning, ErrUnknownHandlerType,
// ErrHandlerLimit, ErrIO or workflow.ErrInvalidConfig
func (s *Server) Start(ctx context.Context, dir string) (res Result, err error) {
	if dir, err = absolute(dir); err != nil {
		return
	}
	for {
		if err = ctx.Err(); err != nil {
			return
		}
		var retry bool
		if res, retry, err = s.start(dir); !retry {
			return
		}
	}
}

// start makes one attempt at starting dir, reporting whether the entry
// changed while the worker was being prepared
func (s *Server) start(dir string) (res Result, retry bool, err error) {
	s.mu.RLock()
	entry, ok := s.mapping.Get(dir)
	err = s.startable(dir, entry, ok)
	s.mu.RUnlock()
	if err != nil {
		return
	}
	ht, _ := s.registry.Lookup(entry.HandlerTypeName)

	var wf *workflow.Config
	if wf, err = loadWorkflow(entry.HandlerConfigPath); err != nil {
		return
	}
	if err = ht.Check(wf); err != nil {
		return
	}

	logger := log.WithField("directory", dir)
	for _, warning := range wf.Validate(dir) {
		logger.Warn(warning)
		res.Warnings = append(res.Warnings, warning)
	}

	var w *handler.Worker
	if w, err = handler.NewWorker(dir, wf); err != nil {
		return res, false, fmt.Errorf("%w: watch %s: %s", ErrIO, dir, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.mapping.Get(dir)
	if err = s.startable(dir, current, ok); err != nil {
		w.Close()
		return
	}
	if current.HandlerTypeName != entry.HandlerTypeName || current.HandlerConfigPath != entry.HandlerConfigPath {
		w.Close()
		logger.Debug("Registration changed while starting, retrying")
		return Result{}, true, nil
	}

	current.Handle = w.Handle()
	s.mapping.Set(dir, current)
	w.Start()
	logger.Infof("Started %s handler", ht.Name)
	return
}

// startable checks entry can be started. The caller must hold at least the
// read lock.
func (s *Server) startable(dir string, entry mapping.HandlerMapping, ok bool) error {
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRegistered, dir)
	}
	if entry.Running() {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, dir)
	}
	if _, ok := s.registry.Lookup(entry.HandlerTypeName); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHandlerType, entry.HandlerTypeName)
	}
	if limit := s.config.HandlersLimit(); limit > 0 && s.mapping.RunningCount() >= limit {
		return fmt.Errorf("%w: %d", ErrHandlerLimit, limit)
	}
	return nil
}

func loadWorkflow(path string) (*workflow.Config, error) {
	wf, err := workflow.Load(path)
	if err == nil {
		return wf, nil
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return nil, fmt.Errorf("%w: %s", ErrIO, err.Error())
	}
	return nil, err
}

// detach removes the worker handle from the entry of dir.
//
// The caller must hold the write lock. A handle whose worker has already
// exited is cleared and reported as ErrNotRunning.
func (s *Server) detach(dir string) (*handler.Handle, error) {
	entry, ok := s.mapping.Get(dir)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, dir)
	}
	h := entry.Handle
	running := entry.Running()
	if h != nil {
		entry.Handle = nil
		s.mapping.Set(dir, entry)
	}
	if !running {
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, dir)
	}
	return h, nil
}

// Stop Asks the worker of dir to exit
//
// The handle is detached under the lock and the stop message is sent after it
// is released. Once detached the stop is always delivered, even when ctx ends
// first. Stop does not wait for the worker to finish its current event.
func (s *Server) Stop(ctx context.Context, dir string) (err error) {
	if dir, err = absolute(dir); err != nil {
		return
	}

	s.mu.Lock()
	h, err := s.detach(dir)
	s.mu.Unlock()
	if err != nil {
		return
	}

	if err = h.Stop(ctx); errors.Is(err, handler.ErrWorkerStopped) {
		err = nil
	}
	if err == nil {
		log.WithField("directory", dir).Info("Stop requested")
	}
	return
}

// Modify Changes the handler type or workflow config of a registered directory
//
// When the directory is being handled the old worker is stopped and waited
// for before a new one is started, so the new settings are live on return.
func (s *Server) Modify(ctx context.Context, req ModifyRequest) (res Result, err error) {
	var dir string
	if dir, err = absolute(req.Directory); err != nil {
		return
	}

	var typeName, configPath string
	if strings.TrimSpace(req.HandlerTypeName) != "" {
		ht, ok := s.registry.Lookup(req.HandlerTypeName)
		if !ok {
			return res, fmt.Errorf("%w: %q", ErrUnknownHandlerType, req.HandlerTypeName)
		}
		typeName = ht.Name
	}
	if strings.TrimSpace(req.HandlerConfigPath) != "" {
		if configPath, err = absolute(req.HandlerConfigPath); err != nil {
			return
		}
	}

	s.mu.Lock()
	entry, ok := s.mapping.Get(dir)
	if !ok {
		s.mu.Unlock()
		return res, fmt.Errorf("%w: %s", ErrNotRegistered, dir)
	}
	if typeName != "" {
		entry.HandlerTypeName = typeName
	}
	if configPath != "" {
		entry.HandlerConfigPath = configPath
	}
	s.mapping.Set(dir, entry)
	h, detachErr := s.detach(dir)
	s.mu.Unlock()

	log.WithField("directory", dir).Infof("Modified handler to %s with config %s", entry.HandlerTypeName, entry.HandlerConfigPath)
	res.merge(s.persist())

	if detachErr != nil {
		// Not running, the new settings apply on the next start
		return res, nil
	}

	if err = h.Stop(ctx); err != nil && !errors.Is(err, handler.ErrWorkerStopped) {
		return
	}
	if err = h.Wait(ctx); err != nil {
		return
	}

	var started Result
	started, err = s.Start(ctx, dir)
	res.merge(started)
	if errors.Is(err, ErrAlreadyRunning) {
		err = nil
	}
	return
}

// Status Reports the registration state of one directory, or all of them.
// An unregistered directory yields an empty map.
func (s *Server) Status(dir string, all bool) (map[string]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := make(map[string]Summary)
	if all {
		for _, key := range s.mapping.Keys() {
			entry, _ := s.mapping.Get(key)
			status[key] = summarise(entry)
		}
		return status, nil
	}

	dir, err := absolute(dir)
	if err != nil {
		return nil, err
	}
	if entry, ok := s.mapping.Get(dir); ok {
		status[dir] = summarise(entry)
	}
	return status, nil
}

func summarise(entry mapping.HandlerMapping) Summary {
	var state string = handler.Terminated.String()
	if entry.Running() {
		state = entry.Handle.State().String()
	}
	return Summary{
		Running:           entry.Running(),
		State:             state,
		HandlerTypeName:   entry.HandlerTypeName,
		HandlerConfigPath: entry.HandlerConfigPath,
	}
}

// Trace Subscribes to the action outcomes of the worker of dir
//
// The channel is closed when ctx is done or the worker stops.
func (s *Server) Trace(ctx context.Context, dir string) (<-chan handler.TraceRecord, error) {
	dir, err := absolute(dir)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.mapping.Get(dir)
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, dir)
	}
	if !entry.Running() {
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, dir)
	}

	records, err := entry.Handle.Trace(ctx)
	if errors.Is(err, handler.ErrWorkerStopped) {
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, dir)
	}
	return records, err
}

// Shutdown Stops every running worker and waits for them to exit
func (s *Server) Shutdown(ctx context.Context) error {
	var handles []*handler.Handle

	s.mu.Lock()
	for _, dir := range s.mapping.Keys() {
		if h, err := s.detach(dir); err == nil {
			handles = append(handles, h)
		}
	}
	s.mu.Unlock()

	log.Infof("Stopping %d handlers", len(handles))
	var errs []error
	for _, h := range handles {
		if err := h.Stop(ctx); err != nil && !errors.Is(err, handler.ErrWorkerStopped) {
			errs = append(errs, err)
			continue
		}
		if err := h.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
