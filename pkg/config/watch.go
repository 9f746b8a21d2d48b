package config

import (
	"context"
	"os"
	"time"

	n "github.com/rjeczalik/notify"
	log "github.com/sirupsen/logrus"
)

func (c *Config) watch(ctx context.Context, filename string) {
	log.Infof("Setting up watch for config file %s", filename)
	events := n.Remove | n.Write | n.Rename
	channel := make(chan n.EventInfo, 1)
	if err := n.Watch(filename, channel, events); err != nil {
		log.Errorf("Unable to watch config file %s - %s", filename, err.Error())
		return
	}
	defer func() { n.Stop(channel) }()

	for {
		select {
		case <-ctx.Done():
			return

		case ei := <-channel:
			switch ei.Event() {
			// Editors such as VIM rename / remove the old buffer and
			// recreate a new one in place. The watch has to be set up
			// again on the new file to track further updates to it.
			case n.Rename, n.Remove:
				if !waitForFile(ctx, filename) {
					log.Warnf("Config file %s was removed, keeping last known settings", filename)
					return
				}
				n.Stop(channel)
				if err := n.Watch(filename, channel, events); err != nil {
					log.Errorf("Unable to re-watch config file %s - %s", filename, err.Error())
					return
				}
			}
			if err := c.reload(filename); err != nil {
				log.Errorf("Unable to reload config file %s - %s", filename, err.Error())
			}
		}
	}
}

func waitForFile(ctx context.Context, filename string) bool {
	for i := 0; i < MaxRetries; i++ {
		if _, err := os.Stat(filename); err == nil {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
	return false
}
