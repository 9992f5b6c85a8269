package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	configadapter "github.com/monomaker/monomaker/internal/adapters/outbound/config"
	"github.com/monomaker/monomaker/internal/adapters/outbound/gitcli"
	"github.com/monomaker/monomaker/internal/adapters/outbound/reportstore"
	"github.com/monomaker/monomaker/internal/adapters/outbound/whitelist"
	"github.com/monomaker/monomaker/internal/application"
	"github.com/monomaker/monomaker/internal/domain"
)

// runFlags are the knobs shared by migrate and plan. File values from
// .monomaker.yaml are the base; only flags the user actually set
// override them.
type runFlags struct {
	configPath    string
	whitelistPath string
	reportPath    string
	workspace     string
	workers       int
	gitBinary     string
	opTimeout     time.Duration
	preserveMerge bool
	keepOnFailure bool
	jsonOut       bool
	verbose       bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to .monomaker.yaml (defaults to the meta-repo directory)")
	cmd.Flags().StringVar(&f.whitelistPath, "branches-whitelist", "", "JSON file listing the branches to migrate")
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "Directory for sources, monorepo and report (defaults to a temp dir)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent repo clones during discovery")
	cmd.Flags().StringVar(&f.gitBinary, "git-binary", "", "Git executable to invoke")
	cmd.Flags().DurationVar(&f.opTimeout, "op-timeout", 0, "Timeout for a single git operation (0 disables)")
	cmd.Flags().BoolVar(&f.preserveMerge, "preserve-merges", false, "Replay meta-repo merge topology instead of linear imports")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "Emit the report as JSON instead of the summary view")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Log every git operation")
}

// buildConfig merges the config file with the flags that were set.
func (f *runFlags) buildConfig(cmd *cobra.Command, metaPath string) (domain.RunConfig, error) {
	path := f.configPath
	if path == "" {
		path = filepath.Join(metaPath, configadapter.FileName)
	}
	cfg, err := configadapter.New().Load(path)
	if err != nil {
		return domain.RunConfig{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("workspace") {
		cfg.Workspace = f.workspace
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("git-binary") {
		cfg.GitBinary = f.gitBinary
	}
	if flags.Changed("op-timeout") {
		cfg.OpTimeout = f.opTimeout
	}
	if flags.Changed("preserve-merges") {
		cfg.PreserveMerges = f.preserveMerge
	}
	if flags.Changed("keep-on-failure") {
		cfg.KeepOnFailure = f.keepOnFailure
	}
	if err := cfg.Validate(); err != nil {
		return domain.RunConfig{}, err
	}
	return cfg, nil
}

// newService wires the outbound adapters into the orchestrator.
func newService(cfg domain.RunConfig, log *zap.Logger) *application.MigrateService {
	vcs := gitcli.New(cfg.GitBinary, cfg.OpTimeout, log)
	return application.NewMigrateService(vcs, whitelist.New(), reportstore.New(), log)
}

// newLogger builds a console logger on stderr so stdout stays clean for
// the report output.
func newLogger(verbose bool) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func renderJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
