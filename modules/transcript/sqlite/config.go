package sqlite

import (
	"fmt"
	"time"
)

const (
	defaultBusyTimeout = 5000
	defaultDBFile      = "transcript.db"
)

// Config holds the SQLite transcript module configuration.
type Config struct {
	// Path is the database file path. Defaults to {DataDir}/transcript.db.
	Path string `yaml:"path"`

	// WAL enables WAL journal mode for concurrent reads. Defaults to true.
	WAL *bool `yaml:"wal"`

	// BusyTimeout is the milliseconds to wait on a busy lock. Defaults to 5000.
	BusyTimeout int `yaml:"busy_timeout"`

	// MaxAge deletes exchanges older than this. Zero keeps everything.
	MaxAge time.Duration `yaml:"max_age"`

	// PruneSchedule is the cron schedule of the retention job. Defaults
	// to hourly.
	PruneSchedule string `yaml:"prune_schedule"`
}

func (c *Config) defaults() {
	if c.WAL == nil {
		t := true
		c.WAL = &t
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = defaultBusyTimeout
	}
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

func (c *Config) validate() error {
	if c.BusyTimeout < 0 {
		return fmt.Errorf("transcript.sqlite: busy_timeout must be non-negative, got %d", c.BusyTimeout)
	}
	if c.MaxAge < 0 {
		return fmt.Errorf("transcript.sqlite: max_age must be non-negative, got %s", c.MaxAge)
	}
	return nil
}
