package ipc

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/1broseidon/autotile/internal/logging"
)

type fakeController struct {
	outputs   []OutputStatus
	retiles   atomic.Int32
	reloadErr error
}

func (f *fakeController) Status() ([]OutputStatus, error) { return f.outputs, nil }
func (f *fakeController) Retile() error                   { f.retiles.Add(1); return nil }
func (f *fakeController) Reload() error                   { return f.reloadErr }

func startServer(t *testing.T, ctrl Controller) *Client {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "autotile.sock")
	srv := NewServer(socket, ctrl, logging.Discard())
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return NewClientAt(socket)
}

func TestPingAndRetile(t *testing.T) {
	ctrl := &fakeController{}
	client := startServer(t, ctrl)

	if err := client.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := client.Retile(); err != nil {
		t.Fatalf("Retile: %v", err)
	}
	if got := ctrl.retiles.Load(); got != 1 {
		t.Fatalf("retiles = %d, want 1", got)
	}
}

func TestGetStatusRoundTrip(t *testing.T) {
	ctrl := &fakeController{outputs: []OutputStatus{{
		Name:   "DP-1",
		State:  "shared",
		Bounds: Rect{Width: 1920, Height: 1080},
		Leaves: []LeafStatus{
			{Tile: 1, Geometry: Rect{Width: 960, Height: 1080}, Windows: []uint32{42}},
			{Tile: 2, Geometry: Rect{X: 960, Width: 960, Height: 1080}, Windows: []uint32{43}},
		},
		Untiled: []uint32{44},
	}}}
	client := startServer(t, ctrl)

	status, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if len(status.Outputs) != 1 {
		t.Fatalf("outputs = %d, want 1", len(status.Outputs))
	}
	out := status.Outputs[0]
	if out.Name != "DP-1" || out.State != "shared" || len(out.Leaves) != 2 {
		t.Fatalf("output = %+v", out)
	}
	if got := out.Leaves[1].Windows; len(got) != 1 || got[0] != 43 {
		t.Fatalf("second leaf windows = %v, want [43]", got)
	}
	if len(out.Untiled) != 1 || out.Untiled[0] != 44 {
		t.Fatalf("untiled = %v, want [44]", out.Untiled)
	}
}

func TestReloadErrorIsReported(t *testing.T) {
	client := startServer(t, &fakeController{reloadErr: errors.New("bad yaml")})

	err := client.Reload()
	if err == nil {
		t.Fatalf("Reload returned nil error")
	}
	if !strings.Contains(err.Error(), "bad yaml") {
		t.Fatalf("Reload error = %q, want it to mention the cause", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	srv := NewServer(filepath.Join(t.TempDir(), "unused.sock"), &fakeController{}, logging.Discard())
	resp := srv.handleCommand(&Request{Command: "UNDO"})
	if resp.Status != "ERROR" || !strings.Contains(resp.Error, "UNDO") {
		t.Fatalf("response = %+v, want unknown command error", resp)
	}
}

func TestClientWithoutDaemon(t *testing.T) {
	client := NewClientAt(filepath.Join(t.TempDir(), "missing.sock"))
	if err := client.Ping(); err == nil {
		t.Fatalf("Ping without daemon returned nil error")
	}
}
