package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMonomakerMCPServer creates a new MCP server with all Monomaker
// tools and resources registered. metaPath is the meta-repository to
// operate on; workspace is where migrations started over MCP place the
// monorepo and report (empty means a temp dir per run).
func NewMonomakerMCPServer(metaPath, workspace string) *server.MCPServer {
	s := server.NewMCPServer(
		"monomaker",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, metaPath, workspace)
	registerResources(s, metaPath, workspace)

	return s
}
