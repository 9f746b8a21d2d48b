// Package mapping holds the table of registered directories and the handler
// each of them is bound to.
//
// A Mapping is not safe for concurrent use. The server guards the whole table
// with a single sync.RWMutex: mutations happen under the write lock, reads
// under at least the read lock.
package mapping

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/mproffitt/folden/pkg/handler"
	"github.com/pelletier/go-toml/v2"
)

// ErrMappingCorrupt the persisted snapshot could not be decoded
var ErrMappingCorrupt = errors.New("mapping corrupt")

// HandlerMapping the registration state of one directory
type HandlerMapping struct {
	// Handle is the control handle of the running worker, nil when stopped
	Handle            *handler.Handle
	HandlerTypeName   string
	HandlerConfigPath string
}

// Running Is a live worker attached to this entry
func (h HandlerMapping) Running() bool {
	return h.Handle != nil && h.Handle.Alive()
}

// Mapping directory path -> handler registration
type Mapping struct {
	directories map[string]HandlerMapping
}

// record is the on-disk form of an entry. The worker handle is never persisted.
type record struct {
	HandlerTypeName   string `toml:"handler_type_name"`
	HandlerConfigPath string `toml:"handler_config_path"`
}

type snapshot struct {
	DirectoryMapping map[string]record `toml:"directory_mapping"`
}

// New an empty mapping
func New() *Mapping {
	return &Mapping{directories: make(map[string]HandlerMapping)}
}

// Get returns a copy of the entry for path
func (m *Mapping) Get(path string) (HandlerMapping, bool) {
	h, ok := m.directories[path]
	return h, ok
}

// Set inserts or replaces the entry for path
func (m *Mapping) Set(path string, h HandlerMapping) {
	m.directories[path] = h
}

// Remove deletes the entry for path
func (m *Mapping) Remove(path string) {
	delete(m.directories, path)
}

// Keys the registered directories in lexical order
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, len(m.directories))
	for k := range m.directories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len number of registered directories
func (m *Mapping) Len() int {
	return len(m.directories)
}

// RunningCount number of entries with a live worker
func (m *Mapping) RunningCount() (count int) {
	for _, h := range m.directories {
		if h.Running() {
			count++
		}
	}
	return
}

// Bytes serialises the registrations as a full-table TOML snapshot
func (m *Mapping) Bytes() ([]byte, error) {
	s := snapshot{DirectoryMapping: make(map[string]record, len(m.directories))}
	for path, h := range m.directories {
		s.DirectoryMapping[path] = record{
			HandlerTypeName:   h.HandlerTypeName,
			HandlerConfigPath: h.HandlerConfigPath,
		}
	}
	return toml.Marshal(s)
}

// FromBytes decodes a snapshot written by Bytes.
//
// Empty input is an empty table. Any decoding failure is reported as
// ErrMappingCorrupt.
func FromBytes(data []byte) (*Mapping, error) {
	m := New()
	if len(bytes.TrimSpace(data)) == 0 {
		return m, nil
	}

	var s snapshot
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMappingCorrupt, err.Error())
	}
	for path, r := range s.DirectoryMapping {
		if path == "" || r.HandlerTypeName == "" {
			return nil, fmt.Errorf("%w: incomplete entry for %q", ErrMappingCorrupt, path)
		}
		m.directories[path] = HandlerMapping{
			HandlerTypeName:   r.HandlerTypeName,
			HandlerConfigPath: r.HandlerConfigPath,
		}
	}
	return m, nil
}
