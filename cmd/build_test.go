package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Norgate-AV/shc/internal/codes"
	"github.com/Norgate-AV/shc/internal/compiler"
	"github.com/Norgate-AV/shc/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockBackend struct {
	mu    sync.Mutex
	calls int
}

func (m *mockBackend) Init() error     { return nil }
func (m *mockBackend) Version() string { return "1.8.2505" }
func (m *mockBackend) Close() error    { return nil }

func (m *mockBackend) Compile(req compiler.Request) compiler.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	return compiler.Result{
		Success:  true,
		Bytecode: []byte(req.Target.String()),
		Elapsed:  5 * time.Millisecond,
	}
}

// testProject is a temp dir with two shaders and a manifest
type testProject struct {
	root     string
	manifest string
	out      string
	cache    string
	log      string
}

func newTestProject(t *testing.T) *testProject {
	t.Helper()

	// keep the developer's global config out of the tests
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("APPDATA", t.TempDir())

	viper.Reset()
	t.Cleanup(viper.Reset)

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	root := t.TempDir()
	p := &testProject{
		root:     root,
		manifest: filepath.Join(root, "shaders.yaml"),
		out:      filepath.Join(root, "bin"),
		cache:    filepath.Join(root, "shader_cache.json"),
		log:      filepath.Join(root, "shader_compile.log"),
	}

	p.write(t, "shaders/common.hlsli", "float4 Tint;\n")
	p.write(t, "shaders/gbuffer.hlsl", "#include \"common.hlsli\"\nfloat4 main() : SV_Target { return Tint; }\n")
	p.write(t, "shaders/tonemap.hlsl", "float4 main() : SV_Target { return 1; }\n")
	p.write(t, "shaders.yaml", `version: "1.0"
shaders:
  - name: gbuffer
    path: shaders/gbuffer.hlsl
    entry: main
    profile: ps_6_6
    spirv: true
  - name: tonemap
    path: shaders/tonemap.hlsl
    entry: main
    profile: ps_6_6
`)

	return p
}

func (p *testProject) write(t *testing.T, rel, content string) {
	t.Helper()

	path := filepath.Join(p.root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (p *testProject) args(extra ...string) []string {
	return append([]string{"-o", p.out, "-c", p.cache, "-r", p.log}, extra...)
}

// newTestCommand builds a fresh command with the shared flags so tests never reuse flag state
func newTestCommand(run func(*cobra.Command, []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "shc",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
	}
	addFlags(cmd.PersistentFlags())

	return cmd
}

func execute(t *testing.T, run func(*cobra.Command, []string) error, args ...string) (string, error) {
	t.Helper()

	var out strings.Builder
	cmd := newTestCommand(run)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	viper.Reset()

	return out.String(), err
}

func mockNewBackend(t *testing.T) *mockBackend {
	t.Helper()

	backend := &mockBackend{}
	original := newBackend
	t.Cleanup(func() { newBackend = original })

	newBackend = func(*config.Config, *zap.Logger) compiler.Backend {
		return backend
	}

	return backend
}

func TestRunBuild(t *testing.T) {
	p := newTestProject(t)
	backend := mockNewBackend(t)

	out, err := execute(t, runBuild, p.args("-m", p.manifest)...)
	require.NoError(t, err)

	assert.Contains(t, out, "[NEW] gbuffer")
	assert.Contains(t, out, "[NEW] tonemap")
	assert.Contains(t, out, "Build SUCCEEDED")
	assert.Equal(t, 3, backend.calls)

	assert.FileExists(t, filepath.Join(p.out, "gbuffer.dxil"))
	assert.FileExists(t, filepath.Join(p.out, "gbuffer.spv"))
	assert.FileExists(t, filepath.Join(p.out, "tonemap.dxil"))
	assert.FileExists(t, p.cache)

	log, err := os.ReadFile(p.log)
	require.NoError(t, err)
	assert.Contains(t, string(log), "Compiler Version: 1.8.2505")
	assert.Contains(t, string(log), "Summary: 2 NEW")

	// second run is fully cached
	out, err = execute(t, runBuild, p.args("-m", p.manifest, "-v")...)
	require.NoError(t, err)
	assert.Contains(t, out, "[SKIP] gbuffer (up to date)")
	assert.Contains(t, out, "Skipped:  2")
	assert.Equal(t, 3, backend.calls)
}

func TestRunBuild_PositionalManifest(t *testing.T) {
	p := newTestProject(t)
	backend := mockNewBackend(t)

	_, err := execute(t, runBuild, p.args(p.manifest)...)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.calls)
}

func TestRunBuild_LocalConfig(t *testing.T) {
	p := newTestProject(t)
	mockNewBackend(t)

	p.write(t, ".shc.yml", "output: "+filepath.ToSlash(filepath.Join(p.root, "from-config"))+"\n")

	_, err := execute(t, runBuild, "-m", p.manifest, "-c", p.cache, "-r", p.log)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(p.root, "from-config", "tonemap.dxil"))
}

func TestRunBuild_DryRun(t *testing.T) {
	p := newTestProject(t)
	backend := mockNewBackend(t)

	out, err := execute(t, runBuild, p.args("-m", p.manifest, "--dry-run")...)
	require.NoError(t, err)

	assert.Contains(t, out, "[WOULD COMPILE] gbuffer")
	assert.Contains(t, out, "[WOULD COMPILE] tonemap")
	assert.Zero(t, backend.calls)
	assert.NoFileExists(t, p.cache)
	assert.NoFileExists(t, p.log)
}

func TestRunBuild_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     func(p *testProject) []string
		setup    func(t *testing.T, p *testProject)
		wantCode int
	}{
		{
			name:     "no manifest",
			args:     func(p *testProject) []string { return p.args() },
			wantCode: codes.ConfigurationError,
		},
		{
			name:     "unreadable manifest",
			args:     func(p *testProject) []string { return p.args("-m", filepath.Join(p.root, "missing.json")) },
			wantCode: codes.ConfigurationError,
		},
		{
			name: "missing source",
			args: func(p *testProject) []string { return p.args("-m", p.manifest) },
			setup: func(t *testing.T, p *testProject) {
				require.NoError(t, os.Remove(filepath.Join(p.root, "shaders", "tonemap.hlsl")))
			},
			wantCode: codes.BuildFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProject(t)
			mockNewBackend(t)

			if tt.setup != nil {
				tt.setup(t, p)
			}

			_, err := execute(t, runBuild, tt.args(p)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, codes.ExitCode(err))
		})
	}
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "shc [manifest]", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Version)

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "build")
	assert.Contains(t, names, "cache")

	for _, flag := range []string{"manifest", "output", "report", "cache", "force", "verbose", "dry-run", "jobs", "include", "compiler-path"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(flag), flag)
	}
}
