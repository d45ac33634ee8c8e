package manifest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hivellm/tmlc/manifest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadParsesManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "tml.yaml")
	writeFile(t, manifestPath, `
name: demo
version: "0.1.0"
targets:
  - name: demo-bin
    crate_type: bin
    src: ["src/**/*.tml"]
    exclude: ["src/ignored/**"]
`)

	m, err := manifest.Load(manifestPath)
	require.NoError(t, err)
	require.Equal(t, "demo", m.Name)
	require.Len(t, m.Targets, 1)
	require.Equal(t, manifest.Bin, m.Targets[0].CrateType)
}

func TestLoadRequiresName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "tml.yaml")
	writeFile(t, manifestPath, "version: \"0.1.0\"\n")

	_, err := manifest.Load(manifestPath)
	require.Error(t, err)
}

func TestResolveExcludesGlobMatches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "main.tml"), "")
	writeFile(t, filepath.Join(dir, "src", "ignored", "skip.tml"), "")

	m := &manifest.Manifest{
		Name: "demo",
		Targets: []manifest.Target{
			{Name: "demo-bin", CrateType: manifest.Bin, Src: []string{"src/**/*.tml"}, Exclude: []string{"src/ignored/**"}},
		},
	}
	files, err := m.Resolve(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Contains(t, files[0], filepath.Join("src", "main.tml"))
}

func TestResolveDeduplicatesAcrossTargets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "shared.tml"), "")

	m := &manifest.Manifest{
		Name: "demo",
		Targets: []manifest.Target{
			{Name: "a", Src: []string{"src/*.tml"}},
			{Name: "b", Src: []string{"src/*.tml"}},
		},
	}
	files, err := m.Resolve(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
}
