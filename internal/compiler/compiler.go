// Package compiler defines the compiler backend contract and a DXC-based implementation.
package compiler

import "time"

// TargetKind selects which bytecode a compile produces
type TargetKind int

const (
	// TargetPrimary is DXIL for D3D12
	TargetPrimary TargetKind = iota

	// TargetSecondary is SPIR-V for Vulkan
	TargetSecondary
)

func (k TargetKind) String() string {
	switch k {
	case TargetPrimary:
		return "DXIL"
	case TargetSecondary:
		return "SPIR-V"
	default:
		return "unknown"
	}
}

// Ext returns the output file extension for the target
func (k TargetKind) Ext() string {
	if k == TargetSecondary {
		return ".spv"
	}

	return ".dxil"
}

// Request describes one compile of one target
type Request struct {
	SourcePath  string
	EntryPoint  string
	Profile     string
	Defines     []string
	IncludeDirs []string
	Target      TargetKind
}

// Result is the outcome of a single compile
type Result struct {
	Success     bool
	Bytecode    []byte
	ErrorText   string
	WarningText string
	Elapsed     time.Duration
}

// Backend compiles shader sources to bytecode.
//
// Init is called once before the first Compile and Close once after the last.
// Implementations used with more than one worker must allow concurrent Compile calls.
type Backend interface {
	Init() error
	Version() string
	Compile(req Request) Result
	Close() error
}
