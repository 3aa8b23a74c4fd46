package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Norgate-AV/shc/internal/compiler"
	"github.com/stretchr/testify/require"
)

// fakeBackend records every request and returns canned results per target
type fakeBackend struct {
	mu      sync.Mutex
	version string
	initErr error
	fail    map[compiler.TargetKind]string
	warn    map[compiler.TargetKind]string

	inits  int
	closes int
	calls  []compiler.Request
}

func newFakeBackend(version string) *fakeBackend {
	return &fakeBackend{
		version: version,
		fail:    make(map[compiler.TargetKind]string),
		warn:    make(map[compiler.TargetKind]string),
	}
}

func (f *fakeBackend) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inits++
	return f.initErr
}

func (f *fakeBackend) Version() string {
	return f.version
}

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closes++
	return nil
}

func (f *fakeBackend) Compile(req compiler.Request) compiler.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req)

	if msg, ok := f.fail[req.Target]; ok {
		return compiler.Result{ErrorText: msg, Elapsed: time.Millisecond}
	}

	return compiler.Result{
		Success:     true,
		Bytecode:    []byte(req.Target.String() + ":" + filepath.Base(req.SourcePath)),
		WarningText: f.warn[req.Target],
		Elapsed:     10 * time.Millisecond,
	}
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// testJob is the manifest shape of a job
type testJob struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Entry   string   `json:"entry"`
	Profile string   `json:"profile"`
	Defines []string `json:"defines,omitempty"`
	Spirv   bool     `json:"spirv,omitempty"`
}

// project is a throwaway shader tree:
//
//	shaders/common.hlsli
//	shaders/a.hlsl      includes common.hlsli
//	shaders/b.hlsl
type project struct {
	root     string
	out      string
	cache    string
	log      string
	manifest string
}

func newProject(t *testing.T) *project {
	t.Helper()

	root := t.TempDir()
	p := &project{
		root:     root,
		out:      filepath.Join(root, "out"),
		cache:    filepath.Join(root, "shader_cache.json"),
		log:      filepath.Join(root, "shader_compile.log"),
		manifest: filepath.Join(root, "shaders.json"),
	}

	writeFile(t, p.path("shaders/common.hlsli"), "float4 Tint;\n")
	writeFile(t, p.path("shaders/a.hlsl"), "#include \"common.hlsli\"\nfloat4 main() : SV_Target { return Tint; }\n")
	writeFile(t, p.path("shaders/b.hlsl"), "float4 main() : SV_Target { return 1; }\n")

	return p
}

func (p *project) path(rel string) string {
	return filepath.Join(p.root, filepath.FromSlash(rel))
}

func (p *project) writeManifest(t *testing.T, jobs ...testJob) {
	t.Helper()

	data, err := json.Marshal(map[string]any{
		"version": "1.0",
		"shaders": jobs,
	})
	require.NoError(t, err)

	writeFile(t, p.manifest, string(data))
}

func (p *project) options() Options {
	return Options{
		ManifestPath: p.manifest,
		OutputDir:    p.out,
		ReportPath:   p.log,
		CachePath:    p.cache,
	}
}

func jobA() testJob {
	return testJob{Name: "A", Path: "shaders/a.hlsl", Entry: "main", Profile: "ps_6_6"}
}

func jobB() testJob {
	return testJob{Name: "B", Path: "shaders/b.hlsl", Entry: "main", Profile: "ps_6_6"}
}
