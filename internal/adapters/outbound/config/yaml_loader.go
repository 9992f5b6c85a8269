package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/monomaker/monomaker/internal/domain"
)

// FileName is the run configuration file looked up in the working
// directory when no explicit path is given.
const FileName = ".monomaker.yaml"

// fileSchema mirrors the on-disk document. Durations are written as
// strings ("30s", "2m") and parsed here; pointers distinguish "absent"
// from an explicit zero.
type fileSchema struct {
	Workspace      *string `yaml:"workspace"`
	Workers        *int    `yaml:"workers"`
	GitBinary      *string `yaml:"git_binary"`
	OpTimeout      *string `yaml:"op_timeout"`
	PreserveMerges *bool   `yaml:"preserve_merges"`
	KeepOnFailure  *bool   `yaml:"keep_on_failure"`
}

// YAMLLoader implements domain.ConfigLoader by reading .monomaker.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads the run configuration from path. A missing file yields
// the defaults; a present but broken file is an error.
func (l *YAMLLoader) Load(path string) (domain.RunConfig, error) {
	if path == "" {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultRunConfig(), nil
		}
		return domain.RunConfig{}, err
	}

	var file fileSchema
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.RunConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg := domain.DefaultRunConfig()
	if file.Workspace != nil {
		cfg.Workspace = *file.Workspace
	}
	if file.Workers != nil {
		cfg.Workers = *file.Workers
	}
	if file.GitBinary != nil {
		cfg.GitBinary = *file.GitBinary
	}
	if file.PreserveMerges != nil {
		cfg.PreserveMerges = *file.PreserveMerges
	}
	if file.KeepOnFailure != nil {
		cfg.KeepOnFailure = *file.KeepOnFailure
	}
	if file.OpTimeout != nil {
		d, err := time.ParseDuration(*file.OpTimeout)
		if err != nil {
			return domain.RunConfig{}, fmt.Errorf("invalid %s: op_timeout: %w", path, err)
		}
		cfg.OpTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return domain.RunConfig{}, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}
