package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/monomaker/monomaker/internal/application"
	"github.com/monomaker/monomaker/internal/domain"
)

// registerResources registers all Monomaker MCP resources on the given
// server.
func registerResources(s *server.MCPServer, metaPath, workspace string) {
	// 1. monomaker://report - report of the last migration run
	s.AddResource(
		mcplib.NewResource(
			"monomaker://report",
			"Migration Report",
			mcplib.WithResourceDescription("Report written by the last migration run in the workspace"),
			mcplib.WithMIMEType("application/json"),
		),
		handleReportResource(workspace),
	)

	// 2. monomaker://repos - discovered repositories
	s.AddResource(
		mcplib.NewResource(
			"monomaker://repos",
			"Discovered Repositories",
			mcplib.WithResourceDescription("Meta-repo and first-layer submodules with their branches and nested pins"),
			mcplib.WithMIMEType("application/json"),
		),
		handleReposResource(metaPath),
	)
}

func handleReportResource(workspace string) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		if workspace == "" {
			return nil, fmt.Errorf("no workspace configured, start the server with --workspace")
		}
		path := domain.Workspace{Root: workspace}.ReportPath()
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading report: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      "monomaker://report",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

func handleReposResource(metaPath string) server.ResourceHandlerFunc {
	return func(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		abs, err := filepath.Abs(metaPath)
		if err != nil {
			return nil, err
		}

		cfg := domain.DefaultRunConfig()
		svc := newService(cfg)
		res, err := svc.Plan(ctx, application.MigrateOptions{MetaPath: abs, Config: cfg})
		if err != nil {
			return nil, fmt.Errorf("discovery failed: %w", err)
		}

		data, err := json.MarshalIndent(res.Report.Repos, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling repos: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      "monomaker://repos",
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
