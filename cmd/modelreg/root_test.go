package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return &cli{dir: dir}
}

func (c *cli) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--storage", filepath.Join(c.dir, "models"),
		"--metadata", filepath.Join(c.dir, "registry.yaml"),
	}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (c *cli) source(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(c.dir, "src", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("weights"), 0o644))
	return p
}

func TestCLI_RegisterGetList(t *testing.T) {
	c := newCLI(t)
	src := c.source(t, "resnet18.pt")

	out, _, err := c.run(t, "register", "resnet18", src, "--metric", "top1_accuracy=0.697", "--dataset", "ImageNet", "--input-shape", "3,224,224")
	require.NoError(t, err)
	assert.Contains(t, out, "resnet18/v1")

	_, _, err = c.run(t, "register", "resnet18", src, "--metric", "top1_accuracy=0.65")
	require.NoError(t, err)
	_, _, err = c.run(t, "register", "chest_xray", src, "--version", "baseline", "--framework", "onnx")
	require.NoError(t, err)

	out, _, err = c.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "resnet18/v1\nresnet18/v2\nchest_xray/baseline\n", out)

	out, _, err = c.run(t, "list", "chest_xray")
	require.NoError(t, err)
	assert.Equal(t, "chest_xray/baseline\n", out)

	out, _, err = c.run(t, "families")
	require.NoError(t, err)
	assert.Equal(t, "resnet18\nchest_xray\n", out)

	out, _, err = c.run(t, "get", "resnet18")
	require.NoError(t, err)
	assert.Contains(t, out, "version: v2")

	out, _, err = c.run(t, "get", "resnet18", "best")
	require.NoError(t, err)
	assert.Contains(t, out, "version: v1")
	assert.Contains(t, out, "dataset: ImageNet")

	out, _, err = c.run(t, "get", "chest_xray", "baseline")
	require.NoError(t, err)
	assert.Contains(t, out, "framework: onnx")
	assert.Contains(t, out, "description: null")
}

func TestCLI_Errors(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run(t, "register", "m", filepath.Join(c.dir, "missing.pt"))
	assert.Error(t, err)

	_, _, err = c.run(t, "register", "m", c.source(t, "m.pt"), "--metric", "accuracy")
	assert.Error(t, err)

	_, _, err = c.run(t, "get", "unknown")
	assert.Error(t, err)

	_, _, err = c.run(t, "--backend", "s3", "list")
	assert.Error(t, err)

	_, _, err = c.run(t, "get")
	assert.Error(t, err)
}

func TestCLI_GetWarnsOnMissingArtifact(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run(t, "register", "m", c.source(t, "m.pt"))
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(filepath.Join(c.dir, "models", "m")))

	out, errOut, err := c.run(t, "get", "m", "v1")
	require.NoError(t, err)
	assert.Contains(t, out, "version: v1")
	assert.True(t, strings.Contains(errOut, "missing"), errOut)
}

func TestCLI_SQLiteBackend(t *testing.T) {
	c := newCLI(t)
	t.Setenv("SQLITE_PATH", filepath.Join(c.dir, "registry.db"))

	_, _, err := c.run(t, "--backend", "sqlite", "register", "m", c.source(t, "m.pt"))
	require.NoError(t, err)

	out, _, err := c.run(t, "--backend", "sqlite", "list")
	require.NoError(t, err)
	assert.Equal(t, "m/v1\n", out)

	_, statErr := os.Stat(filepath.Join(c.dir, "registry.yaml"))
	assert.True(t, os.IsNotExist(statErr), "yaml file untouched by sqlite backend")
}
