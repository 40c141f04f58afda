package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKDL_Defaults(t *testing.T) {
	cfg, err := parseKDL("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, int64(DefaultMaxFileSize), cfg.Scan.MaxFileSize)
	assert.Equal(t, TokenizeWords, cfg.Scan.Tokenize)
	assert.Equal(t, 1, cfg.Scan.MinTokenLength)
	assert.Equal(t, DefaultDebounceMs, cfg.Watch.DebounceMs)
	assert.Equal(t, DefaultTop, cfg.Report.Top)
	assert.Equal(t, FormatText, cfg.Report.Format)
	assert.Contains(t, cfg.Exclude, "**/.git/**")
	assert.Empty(t, cfg.Include)
}

func TestParseKDL_FullConfig(t *testing.T) {
	kdlContent := `
scan {
    root "src"
    max_file_size "2MB"
    follow_symlinks true
    tokenize "lines"
    min_token_length 3
}
performance {
    workers 6
}
watch {
    enabled true
    debounce_ms 50
}
report {
    top 5
    format "json"
}
include "**/*.go" "**/*.md"
exclude "**/gen/**"
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Scan.Root)
	assert.Equal(t, int64(2*1024*1024), cfg.Scan.MaxFileSize)
	assert.True(t, cfg.Scan.FollowSymlinks)
	assert.Equal(t, TokenizeLines, cfg.Scan.Tokenize)
	assert.Equal(t, 3, cfg.Scan.MinTokenLength)
	assert.Equal(t, 6, cfg.Performance.Workers)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 50, cfg.Watch.DebounceMs)
	assert.Equal(t, 5, cfg.Report.Top)
	assert.Equal(t, FormatJSON, cfg.Report.Format)
	assert.Equal(t, []string{"**/*.go", "**/*.md"}, cfg.Include)
	assert.Contains(t, cfg.Exclude, "**/gen/**")
	assert.Contains(t, cfg.Exclude, "**/.git/**", "defaults are kept")
}

func TestParseKDL_IntegerFileSize(t *testing.T) {
	cfg, err := parseKDL(`scan { max_file_size 1024; }`)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), cfg.Scan.MaxFileSize)
}

func TestParseKDL_BadFileSize(t *testing.T) {
	_, err := parseKDL(`scan { max_file_size "lots"; }`)
	assert.Error(t, err)
}

func TestParseKDL_BlockExclude(t *testing.T) {
	kdlContent := `
exclude {
    "**/fixtures/**"
    "**/*.snap"
}
`
	cfg, err := parseKDL(kdlContent)
	require.NoError(t, err)
	assert.Contains(t, cfg.Exclude, "**/fixtures/**")
	assert.Contains(t, cfg.Exclude, "**/*.snap")
}

func TestParseKDL_DuplicateExcludes(t *testing.T) {
	cfg, err := parseKDL(`exclude "**/.git/**" "**/.git/**"`)
	require.NoError(t, err)

	count := 0
	for _, p := range cfg.Exclude {
		if p == "**/.git/**" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestParseKDL_Invalid(t *testing.T) {
	_, err := parseKDL(`scan { root "unterminated }`)
	assert.Error(t, err)
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in       string
		expected int64
		wantErr  bool
	}{
		{"10", 10, false},
		{"10B", 10, false},
		{"4kb", 4 * 1024, false},
		{"3MB", 3 * 1024 * 1024, false},
		{" 1GB ", 1024 * 1024 * 1024, false},
		{"MB", 0, true},
		{"ten", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseSize(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestLoadKDL_ResolvesRootRelativeToFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, KDLFileName), []byte(`scan { root "sub"; }`), 0o644))

	cfg, err := LoadKDL(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join(dir, "sub"), cfg.Scan.Root)
}

func TestLoadKDL_Missing(t *testing.T) {
	cfg, err := LoadKDL(t.TempDir())
	assert.NoError(t, err)
	assert.Nil(t, cfg)
}
