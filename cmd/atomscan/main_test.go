package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/atom/internal/version"
	"github.com/standardbeagle/atom/pkg/atom"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(&stdout, &stderr)
	err := app.Run(append([]string{"atomscan"}, args...))
	return stdout.String(), err
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":             "package main\n\nfunc main() { println(\"cli_token cli_token\") }\n",
		"util/util.go":        "package util\n\nfunc cli_token() {}\n",
		"node_modules/dep.js": "ignored_dependency_token",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestScanCommand_Text(t *testing.T) {
	root := writeProject(t)

	out, err := runApp(t, "--root", root, "scan", "--top", "3")
	require.NoError(t, err)
	assert.Contains(t, out, root)
	assert.Contains(t, out, "deduplicated")
	assert.Contains(t, out, `"cli_token"`)
}

func TestScanCommand_JSON(t *testing.T) {
	root := writeProject(t)

	out, err := runApp(t, "--root", root, "scan", "--json")
	require.NoError(t, err)

	var report struct {
		Root  string `json:"root"`
		Files int    `json:"files"`
		Top   []struct {
			Token atom.Atom `json:"token"`
			Count int       `json:"count"`
		} `json:"top"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, root, report.Root)
	assert.Equal(t, 2, report.Files, "node_modules is excluded by default")

	var found bool
	for _, e := range report.Top {
		if e.Token.String() == "cli_token" {
			found = true
			assert.Equal(t, 3, e.Count)
		}
	}
	assert.True(t, found, "cli_token listed in top entries")
}

func TestScanCommand_IncludeExcludeFlags(t *testing.T) {
	root := writeProject(t)

	out, err := runApp(t, "--root", root, "--include", "**/*.go", "--exclude", "util/**", "scan", "--json")
	require.NoError(t, err)

	var report struct {
		Files int `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Files)
}

func TestScanCommand_ConfigFile(t *testing.T) {
	root := writeProject(t)
	kdl := `
scan {
    tokenize "lines"
}
report {
    format "json"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".atomscan.kdl"), []byte(kdl), 0o644))

	out, err := runApp(t, "--config", root, "scan")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"), "format comes from the config file")

	_, ok := atom.Lookup("package util")
	assert.True(t, ok, "lines mode interns whole lines")
}

func TestScanCommand_InvalidFlags(t *testing.T) {
	root := writeProject(t)

	_, err := runApp(t, "--root", root, "scan", "--tokenize", "sentences")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan.tokenize")

	_, err = runApp(t, "--root", root, "--workers", "-2", "scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "performance.workers")
}

func TestScanCommand_MissingRoot(t *testing.T) {
	_, err := runApp(t, "--root", filepath.Join(t.TempDir(), "absent"), "scan")
	assert.Error(t, err)
}

func TestKeyCommand(t *testing.T) {
	long := strings.Repeat("k", 200)
	out, err := runApp(t, "key", "short", long)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	key := atom.KeyOf("short")
	assert.True(t, strings.HasPrefix(lines[0], fmt.Sprintf("%016x\t5\t", key.Digest)), lines[0])
	assert.Contains(t, lines[0], "windowed=false")
	assert.Contains(t, lines[1], "\t200\t")
	assert.Contains(t, lines[1], "windowed=true")
}

func TestKeyCommand_NoArgs(t *testing.T) {
	_, err := runApp(t, "key")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	root := writeProject(t)

	out, err := runApp(t, "--root", root, "stats")
	require.NoError(t, err)

	var stats statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Files)
	assert.Greater(t, stats.Tokens, 0)
	assert.GreaterOrEqual(t, stats.Registry.Records, 1)
	assert.Greater(t, stats.Buffers.Allocations+stats.Buffers.Reuses, int64(0))
	assert.NotEmpty(t, stats.Buffers.TierHits)
	assert.Equal(t, 256, stats.Buffers.BusiestTier, "small files fill the first token tier")
}

func TestDebugFromEnvironment(t *testing.T) {
	t.Setenv("DEBUG", "scan")
	root := writeProject(t)

	var stdout, stderr bytes.Buffer
	require.NoError(t, newApp(&stdout, &stderr).Run([]string{"atomscan", "--root", root, "scan"}))

	line := strings.TrimSpace(stderr.String())
	require.True(t, strings.HasPrefix(line, "Debug log: "), line)
	logPath := strings.TrimPrefix(line, "Debug log: ")
	defer os.Remove(logPath)

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[DEBUG:SCAN] Starting scan of "+root)
}

func TestDebugFallsBackToStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("os.TempDir does not read TMPDIR on windows")
	}
	root := writeProject(t)
	// A file where the temp directory should be makes the log directory uncreatable
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	t.Setenv("TMPDIR", blocker)
	t.Setenv("DEBUG", "scan")

	var stdout, stderr bytes.Buffer
	require.NoError(t, newApp(&stdout, &stderr).Run([]string{"atomscan", "--root", root, "scan"}))

	assert.Contains(t, stderr.String(), "debug output goes to stderr")
	assert.Contains(t, stderr.String(), "[DEBUG:SCAN] Starting scan of "+root)
}

func TestWatchCommand_StopsAfterDuration(t *testing.T) {
	root := writeProject(t)

	out, err := runApp(t, "--root", root, "watch", "--for", "150ms")
	require.NoError(t, err)
	assert.Contains(t, out, "Watching "+root)
	assert.Contains(t, out, "Stopped after")
}

func TestVersionFlag(t *testing.T) {
	out, err := runApp(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Info())
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)
	assert.Contains(t, out, "atomscan")
}
