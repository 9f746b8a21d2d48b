package server

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mproffitt/folden/pkg/config"
	"github.com/mproffitt/folden/pkg/mapping"
	log "github.com/sirupsen/logrus"
)

// LoadMapping Replaces the in memory table with the persisted snapshot
//
// A missing snapshot is created empty. A snapshot that cannot be decoded is
// logged and replaced by an empty table so the daemon can still start.
//
// Return:
//
// - error ErrIO when the snapshot can neither be read nor created
func (s *Server) LoadMapping() error {
	path := s.config.MappingStatePath
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Infof("No mapping found at %s, creating an empty one", path)
		if err = writeFileAtomic(path, nil, 0o600); err != nil {
			return err
		}
		data = nil
	case err != nil:
		return fmt.Errorf("%w: %s", ErrIO, err.Error())
	}

	m, err := mapping.FromBytes(data)
	if err != nil {
		log.Warnf("Mapping at %s is unusable, starting with an empty mapping - %s", path, err.Error())
		m = mapping.New()
	}

	s.mu.Lock()
	s.mapping = m
	s.mu.Unlock()
	log.Infof("Loaded %d registered directories from %s", m.Len(), path)
	return nil
}

// Reconcile Restores the mapping at daemon start according to the configured
// MappingStatusStrategy
//
// With none nothing is loaded. With save the registrations are loaded but
// left stopped. With continue every registered directory is started, a
// directory which fails to start stays registered and is reported as down.
//
// Return:
//
// - map[string]error The start result of every directory, nil when it is running
// - error            Any error raised while loading the snapshot
func (s *Server) Reconcile(ctx context.Context) (map[string]error, error) {
	results := make(map[string]error)
	strategy := s.config.MappingStatusStrategy
	log.Infof("Applying mapping status strategy %s", strategy)

	if !strategy.Persists() {
		return results, nil
	}
	if err := s.LoadMapping(); err != nil {
		return results, err
	}
	if strategy != config.StrategyContinue {
		return results, nil
	}

	s.mu.RLock()
	keys := s.mapping.Keys()
	s.mu.RUnlock()

	for _, dir := range keys {
		logger := log.WithField("directory", dir)
		_, err := s.Start(ctx, dir)
		if err != nil {
			logger.Errorf("DOWN - %s", err.Error())
		} else {
			logger.Info("RUNNING")
		}
		results[dir] = err
	}
	return results, nil
}
