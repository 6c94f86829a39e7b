// Package mcp exposes the daemon's layout over the Model Context Protocol.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/autotile/internal/ipc"
)

const (
	ServerName    = "autotile"
	ServerVersion = "0.1.0"
)

// Daemon is the part of the IPC client the tools use. *ipc.Client implements it.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	Retile() error
}

// Server is the MCP server for autotile.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: daemon,
		logger: logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "layout_status",
		Description: "Report each output's tiling state (solo or shared), its tile leaves with their geometry and the windows on them, and eligible windows that are not tiled.",
	}, s.handleLayoutStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "retile",
		Description: "Force a full layout pass: resize every output's tile tree to its window count, then place untiled windows and spread crowded tiles.",
	}, s.handleRetile)
}
