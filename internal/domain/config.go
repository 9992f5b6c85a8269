package domain

import (
	"fmt"
	"runtime"
	"time"
)

// DefaultWorkers caps concurrent submodule clones during discovery.
const DefaultWorkers = 4

// RunConfig holds run-level configuration loaded from .monomaker.yaml,
// merged with command-line flags. Flags win over file values.
type RunConfig struct {
	// Workspace is the directory that receives sources/, monorepo/
	// and report.json. Empty means a fresh temporary directory.
	Workspace string

	// Workers bounds concurrent repo discovery. Zero means
	// DefaultWorkers, capped at GOMAXPROCS.
	Workers int

	// GitBinary overrides the git executable name or path.
	GitBinary string

	// OpTimeout bounds a single git invocation. Zero disables the
	// per-operation deadline.
	OpTimeout time.Duration

	// PreserveMerges switches synthesis from linear imports to the
	// merge-preserving mode.
	PreserveMerges bool

	// KeepOnFailure retains the sources/ directory when a run ends
	// with failures, for inspection.
	KeepOnFailure bool
}

// DefaultRunConfig returns the configuration used when no file and no
// flags are given.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		GitBinary: "git",
		Workers:   DefaultWorkers,
	}
}

// EffectiveWorkers resolves the worker count, applying the default and
// the GOMAXPROCS cap.
func (c RunConfig) EffectiveWorkers() int {
	w := c.Workers
	if w <= 0 {
		w = DefaultWorkers
	}
	if max := runtime.GOMAXPROCS(0); w > max {
		w = max
	}
	return w
}

// Validate checks the config for invalid values.
func (c RunConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0 (got %d)", c.Workers)
	}
	if c.OpTimeout < 0 {
		return fmt.Errorf("op_timeout must be >= 0 (got %s)", c.OpTimeout)
	}
	if c.GitBinary == "" {
		return fmt.Errorf("git_binary must not be empty")
	}
	return nil
}
