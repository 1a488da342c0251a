// Package mcptool exposes claim verification as a Model Context Protocol
// tool, so MCP-speaking agent clients can call the same pipeline the plain
// HTTP API uses. Grounded on internal/mcp/mcp.go's server-construction shape
// (mcpserver.NewMCPServer with capability options plus an instructions
// string) and internal/mcp/tools.go's tool-registration pattern
// (mcplib.NewTool + typed argument extraction + CallToolResult), trimmed to
// the one tool this service needs — no resources, no prompts, no
// authorization layer, since §6 makes every route here intentionally
// public.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/veritas/internal/claimtext"
	"github.com/ashita-ai/veritas/internal/orchestrator"
)

const serverInstructions = `You have access to a claim verification tool.

Call verify_claim with a factual claim to have it checked against current
news and a general-knowledge base. You'll get back a verdict (Supported,
Refuted, Not Enough Evidence, Mixed/Disputed, or Unverifiable), a short
reasoning summary, and the citations that informed the verdict.

Use this before asserting a specific, checkable factual claim you're not
confident about — not for opinions, predictions, or claims with no
checkable referent.`

// Server wraps an MCP server exposing the verify_claim tool.
type Server struct {
	mcpServer    *mcpserver.MCPServer
	orchestrator *orchestrator.Orchestrator
	claimMaxLen  int
	logger       *slog.Logger
}

// New builds a Server with verify_claim registered.
func New(o *orchestrator.Orchestrator, claimMaxLen int, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{orchestrator: o, claimMaxLen: claimMaxLen, logger: logger}

	s.mcpServer = mcpserver.NewMCPServer(
		"veritas",
		version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport wiring.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcplib.NewTool("verify_claim",
			mcplib.WithDescription(`Verify a factual claim against current news and a general-knowledge base.

Returns a verdict (Supported, Refuted, Not Enough Evidence, Mixed/Disputed,
Unverifiable), a short reasoning summary, and the citations that informed
it. When claim decomposition is enabled, multi-part claims are decomposed
and checked piece by piece before a final verdict is formed.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("claim",
				mcplib.Description("The factual claim to verify, as a plain-language statement."),
				mcplib.Required(),
			),
		),
		s.handleVerifyClaim,
	)
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

func (s *Server) handleVerifyClaim(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	claim := request.GetString("claim", "")
	if claim == "" {
		return errorResult("claim is required"), nil
	}

	normalized := claimtext.Normalize(claim)
	if err := claimtext.Validate(normalized, s.claimMaxLen); err != nil {
		return errorResult(fmt.Sprintf("invalid claim: %v", err)), nil
	}

	if s.orchestrator == nil {
		return errorResult("verification pipeline is not configured"), nil
	}

	result := s.orchestrator.Verify(ctx, normalized)

	resultData, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		s.logger.Error("mcptool: marshal verify result failed", "error", err)
		return errorResult("internal error formatting result"), nil
	}

	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(resultData)},
		},
	}, nil
}
