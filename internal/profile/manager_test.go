package profile

import (
	"archive/tar"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestPackThenSeed(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "Preferences"), `{"shields":"aggressive"}`)
	writeFile(t, filepath.Join(src, "Default", "Cookies"), "cookie-db")

	archive := filepath.Join(t.TempDir(), "seeds", "brave-aggr.tgz")
	require.NoError(t, Pack(src, archive))

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	p, err := m.EnsureSeeded("bx1", archive)
	require.NoError(t, err)
	assert.Equal(t, m.Path("bx1"), p.Path)
	assert.Equal(t, archive, p.SeedPath)

	data, err := os.ReadFile(filepath.Join(p.Path, "Preferences"))
	require.NoError(t, err)
	assert.Equal(t, `{"shields":"aggressive"}`, string(data))
	data, err = os.ReadFile(filepath.Join(p.Path, "Default", "Cookies"))
	require.NoError(t, err)
	assert.Equal(t, "cookie-db", string(data))
}

func TestEnsureSeeded_KeepsExistingProfile(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "Preferences"), "seed")
	archive := filepath.Join(t.TempDir(), "seed.tgz")
	require.NoError(t, Pack(src, archive))

	base := t.TempDir()
	writeFile(t, filepath.Join(base, "bx2", "Preferences"), "used")

	m, err := NewManager(base)
	require.NoError(t, err)
	p, err := m.EnsureSeeded("bx2", archive)
	require.NoError(t, err)
	assert.Empty(t, p.SeedPath)

	data, err := os.ReadFile(filepath.Join(p.Path, "Preferences"))
	require.NoError(t, err)
	assert.Equal(t, "used", string(data))
}

func TestEnsure_CreatesDirectoryOnce(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	first, err := m.Ensure("ff1")
	require.NoError(t, err)
	assert.DirExists(t, first.Path)

	second, err := m.Ensure("ff1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	got, err := m.Get("ff1")
	require.NoError(t, err)
	assert.Same(t, first, got)

	_, err = m.Get("ff2")
	assert.Error(t, err)
}

func TestEnsure_RejectsPathNames(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "..", "a/b"} {
		_, err := m.Ensure(name)
		assert.Error(t, err, name)
	}
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "evil.tgz")
	f, err := os.Create(archive)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	body := []byte("x")
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../escape", Mode: 0644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
	_, err = tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	_, err = m.EnsureSeeded("bx3", archive)
	assert.Error(t, err)
}

func TestPack_RequiresDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, "x")
	assert.Error(t, Pack(file, filepath.Join(t.TempDir(), "out.tgz")))
}
