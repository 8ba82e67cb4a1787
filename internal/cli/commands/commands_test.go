package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagmark-lang/tagmark/internal/cli"
)

// execute runs the root command with args from dir and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	root := cli.NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), err
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := execute(t, dir, "init")
	require.NoError(t, err)
	require.Contains(t, out, "Initialized tagmark project")
	return dir
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tagmark v")
}

func TestInitCommand(t *testing.T) {
	dir := initProject(t)

	for _, path := range []string{"tagmark.yaml", "views/index.tm", "taglibs"} {
		_, err := os.Stat(filepath.Join(dir, path))
		assert.NoError(t, err, path)
	}

	_, err := execute(t, dir, "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}

func TestCompileCommand(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, dir, "compile")
	require.NoError(t, err)
	assert.Contains(t, out, "1 templates compiled")

	compiled, err := os.ReadFile(filepath.Join(dir, "compiled", "index.erb"))
	require.NoError(t, err)
	assert.Contains(t, string(compiled), "page(")
}

func TestCompileCommand_SingleTemplate(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, dir, "compile", filepath.Join(dir, "views", "index.tm"))
	require.NoError(t, err)
	assert.Contains(t, out, "compiled")
}

func TestCompileCommand_ReportsErrors(t *testing.T) {
	dir := initProject(t)
	broken := filepath.Join(dir, "views", "broken.tm")
	require.NoError(t, os.WriteFile(broken, []byte(`<def attrs="x"/>`), 0o644))

	_, err := execute(t, dir, "compile")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.tm")
}

func TestCompileCommand_Print(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, dir, "compile", "--print", filepath.Join(dir, "views", "index.tm"))
	require.NoError(t, err)
	assert.Contains(t, out, "def page")
	assert.Contains(t, out, "page(")
}

func TestTagsCommand_WithPaths(t *testing.T) {
	dir := initProject(t)
	aliased := filepath.Join(dir, "views", "aliased.tm")
	require.NoError(t, os.WriteFile(aliased,
		[]byte(`<def tag="card"><div/></def><def tag="panel" alias-of="card"/>`), 0o644))

	out, err := execute(t, dir, "tags", aliased)
	require.NoError(t, err)
	assert.Contains(t, out, "card")
	assert.Contains(t, out, "alias")
	assert.Contains(t, out, "(2 tags)")
}

func TestTagsCommand(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, dir, "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "No compiled templates found")

	_, err = execute(t, dir, "compile")
	require.NoError(t, err)

	out, err = execute(t, dir, "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "page")
	assert.Contains(t, out, "title")
	assert.Contains(t, out, "(1 tags)")
}

func TestBuildsCommand(t *testing.T) {
	dir := initProject(t)

	out, err := execute(t, dir, "builds")
	require.NoError(t, err)
	assert.Contains(t, out, "No builds recorded")

	_, err = execute(t, dir, "compile")
	require.NoError(t, err)

	out, err = execute(t, dir, "builds")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
}

func TestCleanCommand(t *testing.T) {
	dir := initProject(t)

	_, err := execute(t, dir, "compile")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "compiled"))
	require.NoError(t, err)

	out, err := execute(t, dir, "clean")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed compiled output")

	_, err = os.Stat(filepath.Join(dir, "compiled"))
	assert.True(t, os.IsNotExist(err))
}
