package include

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates path (and its parents) with content and returns its canonical path
func writeFile(t *testing.T, path, content string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	canon, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)

	return canon
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("resolves nested includes relative to the including file", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "main.hlsl"), "#include \"common/lighting.hlsli\"\nfloat4 main() : SV_Target { return 0; }\n")
		lighting := writeFile(t, filepath.Join(dir, "common", "lighting.hlsli"), "#include \"brdf.hlsli\"\n")
		brdf := writeFile(t, filepath.Join(dir, "common", "brdf.hlsli"), "// leaf\n")

		deps, err := NewResolver(nil).Resolve(main)
		require.NoError(t, err)
		assert.Equal(t, []string{brdf, lighting}, deps)
	})

	t.Run("bracketed includes and whitespace after the hash", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "main.hlsl"), "  #  include <types.hlsli>\n")
		types := writeFile(t, filepath.Join(dir, "types.hlsli"), "")

		deps, err := NewResolver(nil).Resolve(main)
		require.NoError(t, err)
		assert.Equal(t, []string{types}, deps)
	})

	t.Run("search dirs are consulted in order after the own dir", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "src", "main.hlsl"), "#include \"shared.hlsli\"\n")
		first := writeFile(t, filepath.Join(dir, "first", "shared.hlsli"), "")
		writeFile(t, filepath.Join(dir, "second", "shared.hlsli"), "")

		resolver := NewResolver(nil, filepath.Join(dir, "first"), filepath.Join(dir, "second"))
		deps, err := resolver.Resolve(main)
		require.NoError(t, err)
		assert.Equal(t, []string{first}, deps)
	})

	t.Run("own dir wins over search dirs", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "src", "main.hlsl"), "#include \"shared.hlsli\"\n")
		local := writeFile(t, filepath.Join(dir, "src", "shared.hlsli"), "")
		writeFile(t, filepath.Join(dir, "inc", "shared.hlsli"), "")

		deps, err := NewResolver(nil, filepath.Join(dir, "inc")).Resolve(main)
		require.NoError(t, err)
		assert.Equal(t, []string{local}, deps)
	})

	t.Run("falls back to ../include relative to the including file", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "shaders", "main.hlsl"), "#include \"Types.h\"\n")
		types := writeFile(t, filepath.Join(dir, "include", "Types.h"), "")

		deps, err := NewResolver(nil).Resolve(main)
		require.NoError(t, err)
		assert.Equal(t, []string{types}, deps)
	})

	t.Run("unresolvable includes are silently dropped", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "main.hlsl"), "#include \"missing.hlsli\"\n#include \"present.hlsli\"\n")
		present := writeFile(t, filepath.Join(dir, "present.hlsli"), "")

		deps, err := NewResolver(nil).Resolve(main)
		require.NoError(t, err)
		assert.Equal(t, []string{present}, deps)
	})

	t.Run("directories never resolve", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "main.hlsl"), "#include \"folder\"\n")
		require.NoError(t, os.Mkdir(filepath.Join(dir, "folder"), 0o755))

		deps, err := NewResolver(nil).Resolve(main)
		require.NoError(t, err)
		assert.Empty(t, deps)
	})

	t.Run("missing source is an error", func(t *testing.T) {
		_, err := NewResolver(nil).Resolve(filepath.Join(t.TempDir(), "nope.hlsl"))
		assert.Error(t, err)
	})
}

func TestResolver_Cycles(t *testing.T) {
	t.Run("self include terminates", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "self.hlsl"), "#include \"self.hlsl\"\n")

		deps, err := NewResolver(nil).Resolve(main)
		require.NoError(t, err)
		assert.Empty(t, deps)
	})

	t.Run("mutual includes terminate", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "main.hlsl"), "#include \"a.hlsli\"\n")
		a := writeFile(t, filepath.Join(dir, "a.hlsli"), "#include \"b.hlsli\"\n")
		b := writeFile(t, filepath.Join(dir, "b.hlsli"), "#include \"a.hlsli\"\n#include \"main.hlsl\"\n")

		deps, err := NewResolver(nil).Resolve(main)
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, deps)
	})

	t.Run("diamond includes are de-duplicated", func(t *testing.T) {
		dir := t.TempDir()
		main := writeFile(t, filepath.Join(dir, "main.hlsl"), "#include \"left.hlsli\"\n#include \"right.hlsli\"\n")
		left := writeFile(t, filepath.Join(dir, "left.hlsli"), "#include \"base.hlsli\"\n")
		right := writeFile(t, filepath.Join(dir, "right.hlsli"), "#include \"base.hlsli\"\n")
		base := writeFile(t, filepath.Join(dir, "base.hlsli"), "")

		deps, err := NewResolver(nil).Resolve(main)
		require.NoError(t, err)
		assert.Equal(t, []string{base, left, right}, deps)
	})
}

func TestNewResolver_SearchDirs(t *testing.T) {
	dir := t.TempDir()
	resolver := NewResolver(nil, "", dir)

	assert.Equal(t, []string{dir}, resolver.SearchDirs())
}
