package mcp_test

import (
	"testing"

	mcpadapter "github.com/monomaker/monomaker/internal/adapters/inbound/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMonomakerMCPServer(t *testing.T) {
	s := mcpadapter.NewMonomakerMCPServer(".", "")
	require.NotNil(t, s)
}

func TestMCPServerHasTools(t *testing.T) {
	s := mcpadapter.NewMonomakerMCPServer(".", "")
	require.NotNil(t, s)

	tools := s.ListTools()
	require.NotNil(t, tools)

	expectedTools := []string{
		"monomaker_plan",
		"monomaker_migrate",
	}

	for _, name := range expectedTools {
		_, exists := tools[name]
		assert.True(t, exists, "tool %q should be registered", name)
	}

	assert.Len(t, tools, len(expectedTools), "should have exactly %d tools", len(expectedTools))
}
