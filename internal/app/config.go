package app

import (
	"errors"
	"fmt"

	"github.com/vk/ecflowgen/internal/ecfclient"
)

// DefaultWorkers is the number of suites processed concurrently when the
// configuration does not say.
const DefaultWorkers = 4

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// SuitePaths are suite files or directories holding them.
	SuitePaths []string
	// Suites restricts processing to the named suites. Empty means all.
	Suites []string

	// Out is the file definitions are written to. Empty means the app's
	// output writer.
	Out string
	// DeployDir receives the job scripts, manuals and headers.
	DeployDir string
	// GitDir is a git checkout refreshed with a single suite's files.
	GitDir string
	// Replace is the host:port of an ecFlow server to replace suites on.
	Replace string

	Check bool
	Watch bool

	LogFormat string
	LogLevel  string
	Workers   int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.SuitePaths) == 0 {
		return nil, errors.New("SuitePaths is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.DeployDir != "" && cfg.GitDir != "" {
		return nil, errors.New("deploy and git targets cannot be used together")
	}
	if cfg.Replace != "" {
		if _, _, err := ecfclient.ParseAddress(cfg.Replace); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}
