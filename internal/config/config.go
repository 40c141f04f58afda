package config

import (
	"os"
	"path/filepath"
)

// Config file names, checked in this order by Load
const (
	KDLFileName  = ".atomscan.kdl"
	TOMLFileName = ".atomscan.toml"
)

// Tokenize modes
const (
	TokenizeWords  = "words"  // runs of letters, digits and underscores
	TokenizeLines  = "lines"  // one token per line
	TokenizeFields = "fields" // whitespace separated
)

// Report formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

const (
	DefaultMaxFileSize = 4 * 1024 * 1024
	DefaultDebounceMs  = 200
	DefaultTop         = 20
)

type Config struct {
	Scan        Scan
	Performance Performance
	Watch       Watch
	Report      Report
	Include     []string
	Exclude     []string
}

type Scan struct {
	Root           string
	MaxFileSize    int64
	FollowSymlinks bool
	Tokenize       string // words, lines or fields
	MinTokenLength int
}

type Performance struct {
	Workers int // 0 = auto-detect (NumCPU)
}

type Watch struct {
	Enabled    bool
	DebounceMs int // Debounce time for file change events
}

type Report struct {
	Top    int    // Number of most frequent tokens to list
	Format string // text or json
}

// Default returns the configuration used when no config file is present.
// root is used as the scan root as given.
func Default(root string) *Config {
	return &Config{
		Scan: Scan{
			Root:           root,
			MaxFileSize:    DefaultMaxFileSize,
			FollowSymlinks: false,
			Tokenize:       TokenizeWords,
			MinTokenLength: 1,
		},
		Performance: Performance{
			Workers: 0,
		},
		Watch: Watch{
			Enabled:    false,
			DebounceMs: DefaultDebounceMs,
		},
		Report: Report{
			Top:    DefaultTop,
			Format: FormatText,
		},
		Include: []string{},
		Exclude: defaultExclusions(),
	}
}

// Load reads the configuration for dir. A .atomscan.kdl file wins over
// .atomscan.toml; with neither present the defaults are returned with dir as
// the scan root.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}

	if cfg, err := LoadKDL(dir); err != nil || cfg != nil {
		return cfg, err
	}
	if cfg, err := LoadTOML(dir); err != nil || cfg != nil {
		return cfg, err
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		root = dir
	}
	return Default(root), nil
}

// resolveRoot makes a root read from a config file in dir absolute.
// Relative roots are taken relative to the config file's directory.
func resolveRoot(cfg *Config, dir string) {
	if cfg.Scan.Root == "" {
		if abs, err := filepath.Abs(dir); err == nil {
			cfg.Scan.Root = abs
		} else {
			cfg.Scan.Root = dir
		}
		return
	}
	if !filepath.IsAbs(cfg.Scan.Root) {
		cfg.Scan.Root = filepath.Join(dir, cfg.Scan.Root)
		if abs, err := filepath.Abs(cfg.Scan.Root); err == nil {
			cfg.Scan.Root = abs
		}
	}
	cfg.Scan.Root = filepath.Clean(cfg.Scan.Root)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MergeExclusions appends patterns to the exclusion list, dropping duplicates
// while keeping the first occurrence order.
func (c *Config) MergeExclusions(patterns ...string) {
	c.Exclude = DeduplicatePatterns(append(c.Exclude, patterns...))
}

// DeduplicatePatterns removes repeated patterns, preserving order.
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func defaultExclusions() []string {
	return []string{
		// Version control
		"**/.git/**",
		"**/.hg/**",
		"**/.svn/**",

		// Dependencies
		"**/node_modules/**",
		"**/vendor/**",

		// Build output
		"**/dist/**",
		"**/build/**",
		"**/target/**",
		"**/*.min.js",
		"**/*.min.css",

		// Binary files
		"**/*.exe",
		"**/*.dll",
		"**/*.so",
		"**/*.dylib",
		"**/*.a",
		"**/*.o",
		"**/*.zip",
		"**/*.gz",
		"**/*.tar",
		"**/*.png",
		"**/*.jpg",
		"**/*.jpeg",
		"**/*.gif",
		"**/*.pdf",
		"**/*.wasm",

		// Editor temp files
		"**/*.swp",
		"**/*~",
	}
}
