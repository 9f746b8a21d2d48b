package config

import (
	"fmt"
	"strings"
	"sync"
)

// MappingStatusStrategy How the directory mapping survives daemon restarts
type MappingStatusStrategy string

const (
	// StrategyNone never load or save the mapping
	StrategyNone MappingStatusStrategy = "none"

	// StrategySave persist the mapping on every mutation but never start handlers at boot
	StrategySave MappingStatusStrategy = "save"

	// StrategyContinue persist the mapping and start every registered handler at boot
	StrategyContinue MappingStatusStrategy = "continue"
)

// Persists Does this strategy require the mapping to be written to disk
func (s MappingStatusStrategy) Persists() bool {
	return s == StrategySave || s == StrategyContinue
}

// UnmarshalYAML accepts the strategy name in any case
func (s *MappingStatusStrategy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch MappingStatusStrategy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", StrategyNone:
		*s = StrategyNone
	case StrategySave:
		*s = StrategySave
	case StrategyContinue:
		*s = StrategyContinue
	default:
		return fmt.Errorf("invalid mapping status strategy %q", raw)
	}
	return nil
}

// Config Global config for the daemon
type Config struct {
	sync.RWMutex
	Address                 string                `yaml:"address"`
	MappingStatePath        string                `yaml:"mappingStatePath"`
	MappingStatusStrategy   MappingStatusStrategy `yaml:"mappingStatusStrategy"`
	LockFile                string                `yaml:"lockFile"`
	LogLevel                string                `yaml:"logLevel"`
	ConcurrentHandlersLimit int                   `yaml:"concurrentHandlersLimit"`
	AutoReload              bool                  `yaml:"autoReload"`
}
