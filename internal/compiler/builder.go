package compiler

import (
	"io"
	"os/exec"
	"strings"

	"github.com/Norgate-AV/shc/internal/utils"
)

// Commander interface for testing
type Commander interface {
	Run() error
}

// CommandBuilder handles building and running compiler commands
type CommandBuilder struct {
	execCommand func(stdout, stderr io.Writer, name string, args ...string) Commander
}

// NewCommandBuilder creates a new command builder
func NewCommandBuilder() *CommandBuilder {
	return &CommandBuilder{
		execCommand: func(stdout, stderr io.Writer, name string, args ...string) Commander {
			cmd := exec.Command(name, args...)
			cmd.Stdout = stdout
			cmd.Stderr = stderr

			return cmd
		},
	}
}

// BuildCommandArgs builds the dxc arguments for req, writing the object to outFile
func (cb *CommandBuilder) BuildCommandArgs(req Request, outFile string) []string {
	var cmdArgs []string

	cmdArgs = append(cmdArgs, "-T", req.Profile)

	if req.EntryPoint != "" {
		cmdArgs = append(cmdArgs, "-E", req.EntryPoint)
	}

	cmdArgs = append(cmdArgs, "-D", "HLSL=1")

	for _, def := range req.Defines {
		name, value := utils.SplitDefine(def)
		if name == "" {
			continue
		}

		if value != "" {
			name += "=" + value
		}

		cmdArgs = append(cmdArgs, "-D", name)
	}

	for _, dir := range req.IncludeDirs {
		if dir != "" {
			cmdArgs = append(cmdArgs, "-I", dir)
		}
	}

	if req.Target == TargetSecondary {
		cmdArgs = append(cmdArgs, "-spirv", "-fspv-target-env=vulkan1.2")
	}

	cmdArgs = append(cmdArgs, "-Fo", outFile, req.SourcePath)

	return cmdArgs
}

// ExecuteCommand runs the compiler and returns its trimmed stdout and stderr
func (cb *CommandBuilder) ExecuteCommand(compilerPath string, cmdArgs []string) (string, string, error) {
	var stdout, stderr strings.Builder

	c := cb.execCommand(&stdout, &stderr, compilerPath, cmdArgs...)
	err := c.Run()

	return strings.TrimSpace(stdout.String()), strings.TrimSpace(stderr.String()), err
}

// CommandLine renders a command for verbose output
func CommandLine(compilerPath string, cmdArgs []string) string {
	return compilerPath + " " + strings.Join(cmdArgs, " ")
}
