package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	cmd.SetOut(&stderr)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestTemplateCommand(t *testing.T) {
	stdout, _, err := execRoot(t, "template")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# tleup filter file")
	assert.Contains(t, stdout, "periapsisHeightKm")

	path := filepath.Join(t.TempDir(), "birds.flt")
	_, _, err = execRoot(t, "template", "--to", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, stdout, string(data))
}

func TestRootOfflineRun(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.txt", issName+"\n"+issLine1+"\n"+issLine2+"\n"+hiberName+"\n"+hiberLine1+"\n"+hiberLine2+"\n")
	flt := writeFile(t, dir, "f.flt", "$43744\n")
	out := filepath.Join(dir, "out.txt")
	prom := filepath.Join(dir, "tleup.prom")

	_, stderr, err := execRoot(t, "-n", "-u", user, "-f", flt, "-o", out, "--metrics-file", prom, "--log-format", "json", "-v")
	require.NoError(t, err, stderr)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "HIBER-1"))
	assert.Equal(t, 3, strings.Count(string(data), "\r\n"))

	assert.Contains(t, stderr, `"msg":"pipeline complete"`)

	metricsText, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "tleup_records_written_total")
}

func TestListSubcommand(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.txt", issName+"\n"+issLine1+"\n"+issLine2+"\n")

	stdout, _, err := execRoot(t, "list", "-n", "-a", "-u", user, "-q")
	require.NoError(t, err)
	assert.Equal(t, "\"ISS (ZARYA)\": 25544\n", stdout)
}

func TestVerboseQuietExclusive(t *testing.T) {
	_, _, err := execRoot(t, "-n", "-u", "x.txt", "-v", "-q")
	assert.Error(t, err)
}

func TestInvalidConfiguration(t *testing.T) {
	_, _, err := execRoot(t, "-n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
