package cli

import (
	mcpadapter "github.com/monomaker/monomaker/internal/adapters/inbound/mcp"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the Monomaker MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd())
	return cmd
}

func newMCPServeCmd() *cobra.Command {
	var metaPath string
	var workspace string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start Monomaker MCP server (stdio)",
		Long:  "Start the Monomaker MCP server using stdio transport. This allows AI coding assistants to plan and run meta-repo migrations and inspect the resulting reports.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if metaPath == "" {
				metaPath = "."
			}
			s := mcpadapter.NewMonomakerMCPServer(metaPath, workspace)
			return server.ServeStdio(s)
		},
	}

	cmd.Flags().StringVar(&metaPath, "path", "", "Meta-repository path (defaults to current working directory)")
	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace directory for migrations started over MCP")

	return cmd
}
