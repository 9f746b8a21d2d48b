// Package handler runs one worker per watched directory.
//
// A worker owns its filesystem watch and the receive side of its inbox. It
// reacts to filesystem events by running the directory's workflow and to
// control messages sent through its Handle.
package handler

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mproffitt/folden/pkg/mime"
	"github.com/mproffitt/folden/pkg/workflow"
	"github.com/rjeczalik/notify"
	log "github.com/sirupsen/logrus"
)

// eventBuffer size of the notify event channel for one worker
const eventBuffer = 64

// Worker the watch loop for one directory
type Worker struct {
	directory string
	config    *workflow.Config
	handle    *Handle
	inbox     <-chan Message
	events    chan notify.EventInfo
	sinks     map[string]*TraceSink
	logger    *log.Entry
}

// Spawn Starts watching directory with the given workflow
//
// The filesystem watch is set up before Spawn returns so a directory which
// cannot be watched is reported to the caller. Everything else, including the
// processing of existing files, happens on the worker goroutine.
//
// Arguments:
//
// - directory string           The absolute path of the directory to watch
// - config    *workflow.Config The workflow to run for matching events
//
// Return:
//
// - *Handle The control handle for the new worker
// - error   Any error raised while setting up the watch
func Spawn(directory string, config *workflow.Config) (*Handle, error) {
	w, err := NewWorker(directory, config)
	if err != nil {
		return nil, err
	}
	w.Start()
	return w.Handle(), nil
}

// NewWorker Sets up the filesystem watch for directory without processing
// anything yet. The worker must be either started or closed.
func NewWorker(directory string, config *workflow.Config) (*Worker, error) {
	h := NewHandle(InboxCapacity)
	w := &Worker{
		directory: directory,
		config:    config,
		handle:    h,
		inbox:     h.inbox,
		events:    make(chan notify.EventInfo, eventBuffer),
		sinks:     make(map[string]*TraceSink),
		logger:    log.WithField("directory", directory),
	}
	h.setState(Initializing)

	var target string = directory
	if config.WatchRecursive {
		target = filepath.Join(directory, "...")
	}
	if err := notify.Watch(target, w.events, notify.All); err != nil {
		h.finish()
		return nil, err
	}
	return w, nil
}

// Handle the control handle of the worker
func (w *Worker) Handle() *Handle {
	return w.handle
}

// Start runs the worker loop on its own goroutine
func (w *Worker) Start() {
	w.logger.Info("Starting listening to directory")
	go w.run()
}

// Close releases the watch of a worker which was never started
func (w *Worker) Close() {
	notify.Stop(w.events)
	w.handle.finish()
}

func (w *Worker) run() {
	defer w.terminate()

	if w.config.ApplyOnStartupOnExistingFiles {
		if stop := w.applyOnExisting(); stop {
			return
		}
	}

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	w.handle.setState(Watching)
	for {
		select {
		case msg := <-w.inbox:
			if stop := w.receive(msg); stop {
				return
			}
		case ei := <-w.events:
			// Control messages win over events already queued
			if stop := w.drainInbox(); stop {
				return
			}
			kind, ok := eventKind(ei.Event())
			if !ok {
				continue
			}
			if stop := w.process(kind, ei.Path(), false); stop {
				return
			}
		case <-ticker.C:
			w.prune()
		}
	}
}

// receive handles one control message, reporting whether the worker must stop
func (w *Worker) receive(msg Message) bool {
	switch m := msg.(type) {
	case StopMessage:
		w.logger.Info("Shutting down listener")
		return true
	case TraceMessage:
		if m.Sink == nil {
			return false
		}
		w.logger.Debugf("Trace subscriber %s attached", m.Sink.ID)
		w.sinks[m.Sink.ID] = m.Sink
	}
	return false
}

func (w *Worker) drainInbox() bool {
	for {
		select {
		case msg := <-w.inbox:
			if stop := w.receive(msg); stop {
				return true
			}
		default:
			return false
		}
	}
}

// applyOnExisting synthesises a startup event for every file already present
func (w *Worker) applyOnExisting() (stop bool) {
	var files []string
	err := filepath.WalkDir(w.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warnf("Unable to read %s - %s", path, err.Error())
			return nil
		}
		if d.IsDir() {
			if path != w.directory && !w.config.WatchRecursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		w.logger.Errorf("Unable to list existing files - %s", err.Error())
	}

	w.logger.Infof("Applying workflow to %d existing files", len(files))
	for _, path := range files {
		if stop = w.drainInbox(); stop {
			return
		}
		if stop = w.process(workflow.EventCreate, path, true); stop {
			return
		}
	}
	return
}

// process runs the workflow for one event, reporting whether the worker must stop
func (w *Worker) process(kind workflow.EventKind, path string, startup bool) bool {
	// Startup events bypass the kind filter, existing files are the point
	if startup && !w.config.Event.AcceptsName(path) {
		return false
	}
	if !startup && !w.config.Event.Accepts(kind, path) {
		return false
	}
	if !w.qualifies(kind, path) {
		return false
	}

	w.handle.setState(Processing)
	defer w.handle.setState(Watching)

	w.logger.Infof("Handling %s event for %s", kind, path)
	ctx := workflow.NewExecutionContext(path)
	outcomes := w.config.Execute(ctx)
	w.publish(path, outcomes)

	if workflow.Succeeded(outcomes) {
		w.logger.Infof("Completed workflow for %s", path)
		return false
	}
	w.logger.Errorf("Workflow failed for %s - %s", path, ctx.Err())
	if w.config.PanicHandlerOnError {
		w.logger.Error("Stopping handler, workflow is configured to panic on error")
		return true
	}
	return false
}

// qualifies checks the file itself: it must still exist, not be a directory
// and not be a partial download, and must match any mime filter.
func (w *Worker) qualifies(kind workflow.EventKind, path string) bool {
	if kind == workflow.EventRemove || kind == workflow.EventRename {
		return true
	}

	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}

	details, err := mime.Detect(path)
	if err != nil {
		w.logger.Debugf("Unable to detect type of %s - %s", path, err.Error())
		return len(w.config.Event.MimeTypes) == 0
	}
	if details.IsPartial() {
		w.logger.Debugf("Skipping partial download %s", path)
		return false
	}
	return details.Matches(w.config.Event.MimeTypes)
}

func (w *Worker) publish(path string, outcomes []workflow.ActionOutcome) {
	w.prune()
	for _, outcome := range outcomes {
		record := TraceRecord{
			Directory:     w.directory,
			EventFilePath: path,
			ActionOutcome: outcome,
		}
		for id, sink := range w.sinks {
			if !sink.offer(record) {
				w.logger.Debugf("Trace subscriber %s is not keeping up, dropping record", id)
			}
		}
	}
}

// prune drops subscribers whose caller went away
func (w *Worker) prune() {
	for id, sink := range w.sinks {
		if sink.cancelled() {
			w.logger.Debugf("Trace subscriber %s detached", id)
			sink.close()
			delete(w.sinks, id)
		}
	}
}

func (w *Worker) terminate() {
	w.handle.setState(Draining)
	notify.Stop(w.events)
	for id, sink := range w.sinks {
		sink.close()
		delete(w.sinks, id)
	}
	w.handle.finish()
	w.logger.Info("Handler stopped")
}

func eventKind(e notify.Event) (workflow.EventKind, bool) {
	switch {
	case e&notify.Create != 0:
		return workflow.EventCreate, true
	case e&notify.Write != 0:
		return workflow.EventModify, true
	case e&notify.Remove != 0:
		return workflow.EventRemove, true
	case e&notify.Rename != 0:
		return workflow.EventRename, true
	}
	return "", false
}
