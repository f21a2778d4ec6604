package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/tleup/internal/config"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"

	hiberName  = "HIBER-1"
	hiberLine1 = "1 43744U 18096AB  19115.19815699  .00002003  00000-0  78676-4 0  9994"
	hiberLine2 = "2 43744  97.4641 185.2907 0018688 163.4737 196.7173 15.26755683 22421"

	// Serialized ISS record as written by tleup.
	issOut = "ISS (ZARYA)             \r\n" +
		"1 25544U 98067A   08264.51782528 -.00002182  00000+0 -11606-4 0 02926\r\n" +
		"2 25544 051.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537\r\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func offlineConfig(t *testing.T, dir string) config.Config {
	cfg := config.Default()
	cfg.Online = false
	cfg.Output = filepath.Join(dir, "out.txt")
	cfg.UserTLEs = []string{writeFile(t, dir, "user.txt", strings.Join([]string{
		issName, issLine1, issLine2,
		"-- operator note --",
		hiberName, hiberLine1, hiberLine2,
	}, "\n")+"\n")}
	return cfg
}

func readOutput(t *testing.T, cfg config.Config) string {
	t.Helper()
	data, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	return string(data)
}

func TestRunFilteredUserFile(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t, dir)
	cfg.FilterFile = writeFile(t, dir, "f.flt", "# stations only\n?iss\n")

	require.NoError(t, run(context.Background(), cfg, testLogger, io.Discard))
	assert.Equal(t, issOut, readOutput(t, cfg))

	info, err := os.Stat(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestRunReportsParseWarnings(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t, dir)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	require.NoError(t, run(context.Background(), cfg, logger, io.Discard))

	var summary map[string]any
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "run complete" {
			summary = entry
		}
	}
	require.NotNil(t, summary, "no run summary logged")
	// The operator note is taken as a name, then rejected when HIBER-1's name
	// arrives in its line 1 slot.
	assert.Equal(t, float64(1), summary["parse_warnings"])
	assert.Equal(t, float64(1), summary["sources"])
}

func TestRunNoFilterPassesAll(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t, dir)

	require.NoError(t, run(context.Background(), cfg, testLogger, io.Discard))
	out := readOutput(t, cfg)
	assert.Equal(t, 6, strings.Count(out, "\r\n"))
	assert.True(t, strings.HasPrefix(out, issOut))
}

func TestRunEmptyFilterSelectsNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t, dir)
	cfg.FilterFile = writeFile(t, dir, "empty.flt", "# nothing yet\n")

	require.NoError(t, run(context.Background(), cfg, testLogger, io.Discard))
	assert.Empty(t, readOutput(t, cfg))
}

func TestRunMissingFilterFile(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t, dir)
	cfg.FilterFile = filepath.Join(dir, "missing.flt")

	err := run(context.Background(), cfg, testLogger, io.Discard)
	require.Error(t, err)
	_, statErr := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
}

func TestRunList(t *testing.T) {
	dir := t.TempDir()
	cfg := offlineConfig(t, dir)
	cfg.List = true
	cfg.SelectAll = true

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, testLogger, &stdout))
	assert.Equal(t, "\"ISS (ZARYA)\": 25544\n\"HIBER-1\": 43744\n", stdout.String())
	_, err := os.Stat(cfg.Output)
	assert.True(t, os.IsNotExist(err), "list mode must not write the output file")
}

func TestRunOnlineThenCacheFallback(t *testing.T) {
	dir := t.TempDir()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, issName+"\n"+issLine1+"\n"+issLine2+"\n")
	}))

	cfg := config.Default()
	cfg.Output = filepath.Join(dir, "out.txt")
	cfg.Sources.URLs = []string{server.URL + "/stations.txt"}
	cfg.Cache.Dir = filepath.Join(dir, "cache")
	cfg.SelectAll = true

	require.NoError(t, run(context.Background(), cfg, testLogger, io.Discard))
	assert.Equal(t, issOut, readOutput(t, cfg))

	entries, err := os.ReadDir(cfg.Cache.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	server.Close()
	require.NoError(t, os.Remove(cfg.Output))

	require.NoError(t, run(context.Background(), cfg, testLogger, io.Discard))
	assert.Equal(t, issOut, readOutput(t, cfg), "offline run should fall back to the cached snapshot")
}

// TestRunOnlineBeforeUser verifies online data merges ahead of user files,
// so a user record for an already fetched catalog number is dropped.
func TestRunOnlineBeforeUser(t *testing.T) {
	dir := t.TempDir()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, issName+"\n"+issLine1+"\n"+issLine2+"\n")
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Output = filepath.Join(dir, "out.txt")
	cfg.Sources.URLs = []string{server.URL + "/stations.txt"}
	cfg.UserTLEs = []string{writeFile(t, dir, "user.txt", "MY ISS\n"+issLine1+"\n"+issLine2+"\n")}
	cfg.SelectAll = true

	require.NoError(t, run(context.Background(), cfg, testLogger, io.Discard))
	out := readOutput(t, cfg)
	assert.Equal(t, issOut, out)
	assert.NotContains(t, out, "MY ISS")
}
