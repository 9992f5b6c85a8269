package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/monomaker/monomaker/internal/adapters/outbound/history"
	"github.com/monomaker/monomaker/internal/adapters/outbound/tui"
)

func newHistoryCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history <meta-repo>",
		Short: "Show past migration runs for a meta-repo",
		Long:  "Print the ledger of migration runs recorded for the meta-repository, newest last. Each entry notes the meta-repo HEAD, the workspace and the branch outcome counts.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metaPath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			entries, err := history.New().Load(metaPath)
			if err != nil {
				return err
			}

			if jsonOut {
				return renderJSON(cmd, entries)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the history as JSON")

	return cmd
}
