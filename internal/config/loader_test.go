package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "tagmark.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, DefaultTemplatesDir), cfg.TemplatesDir)
	assert.Equal(t, filepath.Join(dir, DefaultOutputDir), cfg.OutputDir)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, []string{filepath.Join(dir, DefaultTaglibDir)}, cfg.TaglibPaths)
	assert.Equal(t, []string{".tm", ".dryml"}, cfg.Extensions)
	assert.False(t, cfg.Metadata)
}

func TestLoad_FileValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
templates_dir: app/views
taglib_paths:
  - lib/tags
  - /usr/share/tagmark
theme: clean
metadata: true
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app/views"), cfg.TemplatesDir)
	assert.Equal(t, []string{filepath.Join(dir, "lib/tags"), "/usr/share/tagmark"}, cfg.TaglibPaths)
	assert.Equal(t, "clean", cfg.Theme)
	assert.True(t, cfg.Metadata)
	assert.Equal(t, path, FileUsed())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "theme: clean\n")
	t.Setenv("TAGMARK_THEME", "dark")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.Theme)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "theme: clean\n")
	t.Setenv("TAGMARK_THEME", "dark")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("theme", "", "")
	flags.Bool("metadata", false, "")
	require.NoError(t, flags.Parse([]string{"--theme", "minimal", "--metadata"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "minimal", cfg.Theme)
	assert.True(t, cfg.Metadata)
}

func TestLoad_UnsetFlagsDoNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "theme: clean\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("theme", "fallback", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "clean", cfg.Theme)
}

func TestLoad_InvalidExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "extensions: [tm]\n")

	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid template extension "tm"`)
}
