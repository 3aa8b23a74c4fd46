package compiler

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCompilerName is looked up on PATH when no compiler path is configured
const DefaultCompilerName = "dxc"

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+(?:\.\d+)?`)

// DXC drives the DirectX Shader Compiler executable
type DXC struct {
	compilerPath string
	searchDirs   []string
	builder      *CommandBuilder
	logger       *zap.Logger
	lookPath     func(file string) (string, error)

	resolved string
	version  string
}

// NewDXC creates a DXC backend. compilerPath may be empty, a bare executable name looked up on
// PATH, or a path to the executable. searchDirs are probed when PATH lookup fails.
func NewDXC(compilerPath string, searchDirs []string, logger *zap.Logger) *DXC {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DXC{
		compilerPath: compilerPath,
		searchDirs:   searchDirs,
		builder:      NewCommandBuilder(),
		logger:       logger,
		lookPath:     exec.LookPath,
	}
}

// Init locates the compiler and probes its version
func (d *DXC) Init() error {
	path, err := d.locate()
	if err != nil {
		return err
	}

	stdout, stderr, err := d.builder.ExecuteCommand(path, []string{"--version"})
	if err != nil {
		return fmt.Errorf("failed to query compiler version from %s: %w", path, err)
	}

	d.resolved = path
	d.version = parseVersion(stdout + "\n" + stderr)

	d.logger.Debug("compiler initialized",
		zap.String("path", path),
		zap.String("version", d.version))

	return nil
}

// Version returns the compiler identity detected by Init
func (d *DXC) Version() string {
	return d.version
}

// Close releases the backend. Compile fails until Init is called again.
func (d *DXC) Close() error {
	d.resolved = ""
	return nil
}

// Compile runs dxc for one target and reads back the produced object
func (d *DXC) Compile(req Request) (result Result) {
	start := time.Now()
	defer func() {
		result.Elapsed = time.Since(start)
	}()

	if d.resolved == "" {
		result.ErrorText = "Compiler not initialized"
		return result
	}

	tmp, err := os.CreateTemp("", "shc-*"+req.Target.Ext())
	if err != nil {
		result.ErrorText = fmt.Sprintf("failed to create temporary output: %v", err)
		return result
	}

	outFile := tmp.Name()
	tmp.Close()
	defer os.Remove(outFile)

	cmdArgs := d.builder.BuildCommandArgs(req, outFile)
	d.logger.Debug("invoking compiler",
		zap.Stringer("target", req.Target),
		zap.String("command", CommandLine(d.resolved, cmdArgs)))

	_, stderr, err := d.builder.ExecuteCommand(d.resolved, cmdArgs)
	if err != nil {
		result.ErrorText = failureText(stderr, err)
		return result
	}

	bytecode, err := os.ReadFile(outFile)
	if err != nil {
		result.ErrorText = fmt.Sprintf("failed to read compiled output: %v", err)
		return result
	}

	if len(bytecode) == 0 {
		result.ErrorText = "Compiler produced no bytecode"
		if stderr != "" {
			result.ErrorText += ": " + stderr
		}

		return result
	}

	result.Success = true
	result.Bytecode = bytecode
	result.WarningText = stderr

	return result
}

// locate resolves the compiler executable
func (d *DXC) locate() (string, error) {
	name := d.compilerPath
	if name == "" {
		name = DefaultCompilerName
	}

	// explicit paths must exist as given
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("failed to load compiler %s: %w", name, err)
		}

		return filepath.Abs(name)
	}

	if path, err := d.lookPath(name); err == nil {
		return path, nil
	}

	searched := []string{"PATH"}
	for _, dir := range d.searchDirs {
		for _, candidate := range executableNames(name) {
			path := filepath.Join(dir, candidate)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, nil
			}
		}

		searched = append(searched, dir)
	}

	return "", fmt.Errorf("failed to load %s. Searched: %s", name, strings.Join(searched, ", "))
}

func executableNames(name string) []string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return []string{name + ".exe", name}
	}

	return []string{name}
}

// parseVersion extracts the first dotted version from dxc --version output
func parseVersion(output string) string {
	if v := versionPattern.FindString(output); v != "" {
		return v
	}

	if line, _, _ := strings.Cut(strings.TrimSpace(output), "\n"); line != "" {
		return strings.TrimSpace(line)
	}

	return "unknown"
}

// failureText picks the most useful description of a failed compile
func failureText(stderr string, err error) string {
	if stderr != "" {
		return stderr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Sprintf("Compilation failed (exit code %d)", exitErr.ExitCode())
	}

	return err.Error()
}

// DefaultSearchDirs returns the conventional locations of a vendored dxc relative to a project root
func DefaultSearchDirs(root string) []string {
	var dirs []string
	for _, prefix := range []string{".", "..", filepath.Join("..", "..")} {
		dirs = append(dirs, filepath.Join(root, prefix, "external", "dxc", "bin", "x64"))
	}

	return dirs
}
