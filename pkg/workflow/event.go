package workflow

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// EventKind a filesystem event a workflow can react to
type EventKind string

const (
	EventCreate EventKind = "create"
	EventModify EventKind = "modify"
	EventRemove EventKind = "remove"
	EventRename EventKind = "rename"
)

// EventTypes every event kind accepted in a workflow config
var EventTypes = []EventKind{
	EventCreate,
	EventModify,
	EventRemove,
	EventRename,
}

// ParseEventKind resolves an event name, accepting a few common aliases
func ParseEventKind(name string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "create", "created":
		return EventCreate, nil
	case "modify", "modified", "write":
		return EventModify, nil
	case "remove", "removed", "delete", "deleted":
		return EventRemove, nil
	case "rename", "renamed", "move", "moved":
		return EventRename, nil
	}
	return "", fmt.Errorf("unknown event %q", name)
}

// UnmarshalText see ParseEventKind
func (k *EventKind) UnmarshalText(text []byte) error {
	kind, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Event the filter deciding which filesystem events reach the pipeline
type Event struct {
	Events      []EventKind `toml:"events"`
	NamingRegex string      `toml:"naming_regex,omitempty"`
	MimeTypes   []string    `toml:"mime_types,omitempty"`

	naming *regexp.Regexp
}

func (e *Event) compile() (err error) {
	if len(e.Events) == 0 {
		return fmt.Errorf("event filter must name at least one event")
	}
	if e.NamingRegex == "" {
		e.naming = nil
		return
	}
	if e.naming, err = regexp.Compile(e.NamingRegex); err != nil {
		return fmt.Errorf("invalid naming_regex: %w", err)
	}
	return
}

// Accepts Test whether an event of the given kind on path passes the kind and
// name filters. Content based filtering is left to the caller as it needs the
// file to exist.
func (e *Event) Accepts(kind EventKind, path string) bool {
	var found bool = false
	for _, k := range e.Events {
		if k == kind {
			found = true
			break
		}
	}
	return found && e.AcceptsName(path)
}

// AcceptsName Test path against the naming filter only
func (e *Event) AcceptsName(path string) bool {
	return e.naming == nil || e.naming.MatchString(filepath.Base(path))
}
