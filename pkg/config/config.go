package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"
)

// MaxRetries Maximum number of retries for operations
const MaxRetries = 100

// DefaultAddress When not set, the daemon API listens here
const DefaultAddress = "127.0.0.1:8080"

// DefaultMappingStatePath When not set, the mapping snapshot is written here
const DefaultMappingStatePath = "~/.folden/mapping.toml"

// New Create a new Config object
//
// Arguments:
//
// - ctx        context.Context Cancels the auto reload watch when done
// - configFile string          The full path to the config file to load
//
// Return:
//
// - *Config A pointer to the loaded configuration
// - error   The last error which occured during loading
func New(ctx context.Context, configFile string) (c *Config, err error) {
	c = &Config{}
	if err = c.load(configFile); err != nil {
		return
	}
	if c.AutoReload {
		go c.watch(ctx, configFile)
	}
	return
}

// Parse Decode a config document without touching the filesystem or logger
func Parse(data []byte) (c *Config, err error) {
	c = &Config{}
	if err = yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c.defaults()
	if err = c.validate(); err != nil {
		return nil, err
	}
	return
}

// Default Returns the configuration used when no config file is given
func Default() *Config {
	c := &Config{}
	c.defaults()
	return c
}

func expandHome(path *string) {
	var p string = (*path)
	if len(p) == 0 || p[0] != '~' {
		return
	}
	if len(p) > 1 && p[1] != '/' {
		p = "~/" + p[1:]
	}

	if p == "~" || p[:2] == "~/" {
		dirname, _ := os.UserHomeDir()
		if p == "~" {
			p = dirname
		} else {
			p = filepath.Join(dirname, p[2:])
		}
	}

	*path = p
}

func (c *Config) defaults() {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = DefaultAddress
	}
	if strings.TrimSpace(c.MappingStatePath) == "" {
		c.MappingStatePath = DefaultMappingStatePath
	}
	if c.MappingStatusStrategy == "" {
		c.MappingStatusStrategy = StrategyNone
	}
	expandHome(&c.MappingStatePath)
	if c.LockFile == "" {
		c.LockFile = c.MappingStatePath + ".lock"
	}
	expandHome(&c.LockFile)
}

func (c *Config) validate() error {
	if c.ConcurrentHandlersLimit < 0 {
		return fmt.Errorf("invalid config: concurrentHandlersLimit must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: unknown logLevel %q", c.LogLevel)
	}
	return nil
}

func (c *Config) load(filename string) (err error) {
	c.Lock()
	defer c.Unlock()
	log.Infof("Loading config file %s", filename)

	var f []byte
	if f, err = os.ReadFile(filename); err != nil {
		return
	}

	var loaded *Config
	if loaded, err = Parse(f); err != nil {
		return
	}

	c.Address = loaded.Address
	c.MappingStatePath = loaded.MappingStatePath
	c.MappingStatusStrategy = loaded.MappingStatusStrategy
	c.LockFile = loaded.LockFile
	c.LogLevel = loaded.LogLevel
	c.ConcurrentHandlersLimit = loaded.ConcurrentHandlersLimit
	c.AutoReload = loaded.AutoReload

	c.SetupLogging()
	log.Info("Done loading config file")
	return
}

// reload Re-applies the settings that can change while the daemon runs.
//
// The listen address, mapping location and strategy are fixed for the life of
// the process so only the log level and handler limit are taken from disk.
func (c *Config) reload(filename string) (err error) {
	var f []byte
	if f, err = os.ReadFile(filename); err != nil {
		return
	}

	var loaded *Config
	if loaded, err = Parse(f); err != nil {
		return
	}

	c.Lock()
	c.LogLevel = loaded.LogLevel
	c.ConcurrentHandlersLimit = loaded.ConcurrentHandlersLimit
	c.Unlock()
	c.SetupLogging()
	log.Infof("Reloaded config file %s", filename)
	return
}

// HandlersLimit The maximum number of concurrently running handlers, 0 for unlimited
func (c *Config) HandlersLimit() int {
	c.RLock()
	defer c.RUnlock()
	return c.ConcurrentHandlersLimit
}

// SetupLogging Applies the configured log level to the global logger
func (c *Config) SetupLogging() {
	log.SetFormatter(&log.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	switch strings.ToLower(c.LogLevel) {
	case "trace":
		log.SetReportCaller(true)
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetReportCaller(true)
		log.SetLevel(log.DebugLevel)
	case "error":
		log.SetReportCaller(false)
		log.SetLevel(log.ErrorLevel)
	case "warn":
		log.SetReportCaller(false)
		log.SetLevel(log.WarnLevel)
	default:
		log.SetReportCaller(false)
		log.SetLevel(log.InfoLevel)
	}
}
