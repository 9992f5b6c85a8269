package cli

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/monomaker/monomaker/internal/adapters/outbound/tui"
	"github.com/monomaker/monomaker/internal/application"
)

func newPlanCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "plan <meta-repo>",
		Short: "Show what a migration would do without building anything",
		Long:  "Run discovery and branch resolution against the meta-repository and print the resulting plan. No monorepo is created and no report file is written.",
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
			res, err := svc.Plan(ctx, application.MigrateOptions{
				MetaPath:      metaPath,
				WhitelistPath: flags.whitelistPath,
				Config:        cfg,
			})
			if err != nil {
				return err
			}

			if flags.jsonOut {
				return renderJSON(cmd, res.Report)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderReport(res.Report))
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
