package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "crossbrowse dev\n", out)
}

func TestProfilePack(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "bx1")
	require.NoError(t, os.MkdirAll(source, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "Preferences"), []byte("{}"), 0644))
	archive := filepath.Join(dir, "seed.tar.gz")

	out, err := execute(t, "profile", "pack", source, archive)
	require.NoError(t, err)
	assert.Contains(t, out, "Packed")
	assert.FileExists(t, archive)
}

func TestProfilePack_RequiresTwoArgs(t *testing.T) {
	_, err := execute(t, "profile", "pack", "only-one")
	assert.Error(t, err)
}

func TestRun_NoSites(t *testing.T) {
	t.Setenv("CROSSBROWSE_SITES", "")
	t.Setenv("CROSSBROWSE_SITE_LIST_FILE", "")
	t.Chdir(t.TempDir())

	_, err := execute(t, "run")
	assert.EqualError(t, err, "no sites to analyze")
}
