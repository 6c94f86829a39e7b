package mcp

import "github.com/1broseidon/autotile/internal/ipc"

type LayoutStatusInput struct {
	Output string `json:"output,omitempty" jsonschema:"Only report this output (e.g. DP-1). Default: all outputs"`
}

type LayoutStatusOutput struct {
	UptimeSeconds int64              `json:"uptime_seconds"`
	Outputs       []ipc.OutputStatus `json:"outputs"`
}

type RetileInput struct{}

type RetileOutput struct {
	Retiled bool `json:"retiled"`
}
