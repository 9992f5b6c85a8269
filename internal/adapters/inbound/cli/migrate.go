package cli

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/monomaker/monomaker/internal/adapters/outbound/gitinfo"
	"github.com/monomaker/monomaker/internal/adapters/outbound/history"
	"github.com/monomaker/monomaker/internal/adapters/outbound/tui"
	"github.com/monomaker/monomaker/internal/application"
	"github.com/monomaker/monomaker/internal/domain"
)

func newMigrateCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "migrate <meta-repo>",
		Short: "Migrate a meta-repo and its submodules into a monorepo",
		Long:  "Discover the meta-repository's first-layer submodules, resolve the branch set, and synthesize every branch of the monorepo with full imported history. The run report is written to <workspace>/report.json.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metaPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			cfg, err := flags.buildConfig(cmd, metaPath)
			if err != nil {
				return err
			}

			log := newLogger(flags.verbose)
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc := newService(cfg, log)
			res, runErr := svc.Run(ctx, application.MigrateOptions{
				MetaPath:      metaPath,
				WhitelistPath: flags.whitelistPath,
				ReportPath:    flags.reportPath,
				Config:        cfg,
			})

			if res.Report != nil && res.Report.FinishedAt != "" {
				saveRunHistory(metaPath, res, log)
			}

			if res.Report != nil {
				if flags.jsonOut {
					if err := renderJSON(cmd, res.Report); err != nil {
						return err
					}
				} else {
					fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(res.Report))
					if res.Workspace.Root != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "  monorepo: %s\n\n", res.Workspace.MonorepoDir())
					}
				}
			}

			if runErr != nil {
				return runErr
			}
			if res.Failed() {
				return errBranchFailures
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.reportPath, "report", "", "Write the run report to this path instead of <workspace>/report.json")
	cmd.Flags().BoolVar(&flags.keepOnFailure, "keep-on-failure", false, "Keep cloned sources for inspection when branches fail")

	return cmd
}

// saveRunHistory appends the run to the meta-repo's ledger. Failures
// here never fail the migration itself.
func saveRunHistory(metaPath string, res application.MigrateResult, log *zap.Logger) {
	head, err := gitinfo.New().HeadSHA(metaPath)
	if err != nil {
		log.Warn("resolving meta HEAD for history", zap.Error(err))
	}
	entry := domain.NewRunEntry(res.Report, head, res.Workspace.Root)
	if err := history.New().Save(metaPath, entry); err != nil {
		log.Warn("saving run history", zap.Error(err))
	}
}
