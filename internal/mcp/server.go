// Package mcp exposes the assistant's live context and query path as MCP
// tools so other agents can read what the meeting assistant sees and hears.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jcarver/attend/internal/assist"
	"github.com/jcarver/attend/internal/capture"
)

// Server wraps an SSE MCP server around the capture buffers and the query
// orchestrator.
type Server struct {
	sse    *server.SSEServer
	logger *slog.Logger
}

// NewServer builds the MCP server and its tools.
func NewServer(version string, screen assist.ScreenSource, ring *capture.Ring, orch *assist.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := server.NewMCPServer("attend", version)

	s.AddTool(
		mcp.NewTool("get_screen_context",
			mcp.WithDescription("Return the text currently visible on the user's screen (OCR)."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(screen.Context(ctx)), nil
		},
	)

	s.AddTool(
		mcp.NewTool("get_transcript",
			mcp.WithDescription("Return the recent meeting audio transcript."),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText(ring.Context()), nil
		},
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the assistant a question with the current screen and audio context attached."),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("The question to answer in the context of the ongoing meeting."),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			question, err := req.RequireString("question")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if strings.TrimSpace(question) == "" {
				return mcp.NewToolResultError("question is empty"), nil
			}
			answer, err := orch.HandleQuery(ctx, question)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return mcp.NewToolResultText(answer), nil
		},
	)

	return &Server{sse: server.NewSSEServer(s), logger: logger}
}

// Start serves SSE on addr; blocks until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("mcp server listening", "addr", addr)
	if err := s.sse.Start(addr); err != nil {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}

// Shutdown stops the SSE server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.sse.Shutdown(ctx)
}
