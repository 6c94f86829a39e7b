package mcp

import (
	"context"
	"errors"
	"sort"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/autotile/internal/ipc"
	"github.com/1broseidon/autotile/internal/logging"
)

type fakeDaemon struct {
	status  *ipc.StatusData
	err     error
	retiles int
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

func (f *fakeDaemon) Retile() error {
	if f.err != nil {
		return f.err
	}
	f.retiles++
	return nil
}

func twoOutputs() *ipc.StatusData {
	return &ipc.StatusData{
		UptimeSeconds: 12,
		Outputs: []ipc.OutputStatus{
			{Name: "DP-1", State: "solo", Leaves: []ipc.LeafStatus{{Tile: 0, Windows: []uint32{1}}}},
			{Name: "HDMI-1", State: "shared", Leaves: []ipc.LeafStatus{
				{Tile: 3, Windows: []uint32{2}},
				{Tile: 4, Windows: []uint32{3}},
			}},
		},
	}
}

func TestLayoutStatusFiltersByOutput(t *testing.T) {
	s := NewServer(&fakeDaemon{status: twoOutputs()}, logging.Discard())

	tests := []struct {
		output    string
		wantNames []string
		wantErr   bool
	}{
		{output: "", wantNames: []string{"DP-1", "HDMI-1"}},
		{output: "HDMI-1", wantNames: []string{"HDMI-1"}},
		{output: "eDP-1", wantErr: true},
	}
	for _, tt := range tests {
		_, out, err := s.handleLayoutStatus(context.Background(), nil, LayoutStatusInput{Output: tt.output})
		if tt.wantErr {
			if err == nil {
				t.Fatalf("layout_status(%q) returned nil error", tt.output)
			}
			continue
		}
		if err != nil {
			t.Fatalf("layout_status(%q): %v", tt.output, err)
		}
		if len(out.Outputs) != len(tt.wantNames) {
			t.Fatalf("layout_status(%q) outputs = %d, want %d", tt.output, len(out.Outputs), len(tt.wantNames))
		}
		for i, name := range tt.wantNames {
			if out.Outputs[i].Name != name {
				t.Fatalf("layout_status(%q) output %d = %q, want %q", tt.output, i, out.Outputs[i].Name, name)
			}
		}
		if out.UptimeSeconds != 12 {
			t.Fatalf("uptime = %d, want 12", out.UptimeSeconds)
		}
	}
}

func TestRetileForwardsToDaemon(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, logging.Discard())

	_, out, err := s.handleRetile(context.Background(), nil, RetileInput{})
	if err != nil {
		t.Fatalf("retile: %v", err)
	}
	if !out.Retiled || d.retiles != 1 {
		t.Fatalf("retile out = %+v, daemon retiles = %d", out, d.retiles)
	}

	d.err = errors.New("daemon not running")
	if _, _, err := s.handleRetile(context.Background(), nil, RetileInput{}); err == nil {
		t.Fatalf("retile with daemon error returned nil error")
	}
}

func TestToolsOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	d := &fakeDaemon{status: twoOutputs()}
	s := NewServer(d, logging.Discard())

	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	serverSession, err := s.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test", Version: "0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "layout_status" || names[1] != "retile" {
		t.Fatalf("tools = %v, want [layout_status retile]", names)
	}

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: "retile", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool retile: %v", err)
	}
	if res.IsError {
		t.Fatalf("retile reported an error: %+v", res.Content)
	}
	if d.retiles != 1 {
		t.Fatalf("daemon retiles = %d, want 1", d.retiles)
	}
}
