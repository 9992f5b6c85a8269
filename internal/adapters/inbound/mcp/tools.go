package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/monomaker/monomaker/internal/adapters/outbound/gitcli"
	"github.com/monomaker/monomaker/internal/adapters/outbound/reportstore"
	"github.com/monomaker/monomaker/internal/adapters/outbound/whitelist"
	"github.com/monomaker/monomaker/internal/application"
	"github.com/monomaker/monomaker/internal/domain"
)

// registerTools registers all Monomaker MCP tools on the given server.
func registerTools(s *server.MCPServer, metaPath, workspace string) {
	// 1. monomaker_plan
	s.AddTool(
		mcplib.NewTool("monomaker_plan",
			mcplib.WithDescription("Discover the meta-repo's submodules and resolve the branch set without building a monorepo. Returns the full plan report as JSON."),
			mcplib.WithString("whitelist",
				mcplib.Description("Path to a JSON file listing the branches to migrate"),
			),
		),
		handlePlan(metaPath),
	)

	// 2. monomaker_migrate
	s.AddTool(
		mcplib.NewTool("monomaker_migrate",
			mcplib.WithDescription("Run a full migration: synthesize every resolved branch of the monorepo with imported history. Returns the run report as JSON."),
			mcplib.WithString("whitelist",
				mcplib.Description("Path to a JSON file listing the branches to migrate"),
			),
			mcplib.WithBoolean("preserve_merges",
				mcplib.Description("Replay meta-repo merge topology instead of linear imports"),
			),
			mcplib.WithBoolean("keep_on_failure",
				mcplib.Description("Keep cloned sources for inspection when branches fail"),
			),
		),
		handleMigrate(metaPath, workspace),
	)
}

// newService wires the standard adapter stack for tool handlers.
func newService(cfg domain.RunConfig) *application.MigrateService {
	log := zap.NewNop()
	vcs := gitcli.New(cfg.GitBinary, cfg.OpTimeout, log)
	return application.NewMigrateService(vcs, whitelist.New(), reportstore.New(), log)
}

func handlePlan(metaPath string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg := domain.DefaultRunConfig()
		svc := newService(cfg)

		wlPath, _ := request.GetArguments()["whitelist"].(string)
		res, err := svc.Plan(ctx, application.MigrateOptions{
			MetaPath:      metaPath,
			WhitelistPath: wlPath,
			Config:        cfg,
		})
		if err != nil {
			return errorResult(fmt.Sprintf("plan failed: %v", err)), nil
		}
		return jsonResult(res.Report)
	}
}

func handleMigrate(metaPath, workspace string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		cfg := domain.DefaultRunConfig()
		cfg.Workspace = workspace

		args := request.GetArguments()
		if pm, ok := args["preserve_merges"].(bool); ok {
			cfg.PreserveMerges = pm
		}
		if keep, ok := args["keep_on_failure"].(bool); ok {
			cfg.KeepOnFailure = keep
		}
		wlPath, _ := args["whitelist"].(string)

		svc := newService(cfg)
		res, err := svc.Run(ctx, application.MigrateOptions{
			MetaPath:      metaPath,
			WhitelistPath: wlPath,
			Config:        cfg,
		})
		if err != nil {
			// the report still describes how far the run got
			if res.Report != nil {
				if out, jerr := jsonResult(res.Report); jerr == nil {
					out.IsError = true
					return out, nil
				}
			}
			return errorResult(fmt.Sprintf("migration failed: %v", err)), nil
		}
		return jsonResult(res.Report)
	}
}

// jsonResult marshals v to JSON and returns it as a text content result.
func jsonResult(v interface{}) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
