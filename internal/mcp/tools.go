package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/autotile/internal/ipc"
)

func (s *Server) handleLayoutStatus(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutStatusInput) (*mcpsdk.CallToolResult, LayoutStatusOutput, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, LayoutStatusOutput{}, fmt.Errorf("layout_status: %w", err)
	}

	outputs := status.Outputs
	if args.Output != "" {
		outputs = nil
		for _, o := range status.Outputs {
			if o.Name == args.Output {
				outputs = append(outputs, o)
			}
		}
		if len(outputs) == 0 {
			return nil, LayoutStatusOutput{}, fmt.Errorf("layout_status: unknown output %q", args.Output)
		}
	}
	if outputs == nil {
		outputs = []ipc.OutputStatus{}
	}

	s.logger.Debug("mcp layout_status", "outputs", len(outputs))
	return nil, LayoutStatusOutput{
		UptimeSeconds: status.UptimeSeconds,
		Outputs:       outputs,
	}, nil
}

func (s *Server) handleRetile(_ context.Context, _ *mcpsdk.CallToolRequest, _ RetileInput) (*mcpsdk.CallToolResult, RetileOutput, error) {
	if err := s.daemon.Retile(); err != nil {
		return nil, RetileOutput{}, fmt.Errorf("retile: %w", err)
	}
	s.logger.Info("mcp retile")
	return nil, RetileOutput{Retiled: true}, nil
}
