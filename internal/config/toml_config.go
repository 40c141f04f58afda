package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors the KDL layout. Pointers distinguish absent keys from
// zero values so absent keys keep their defaults.
type tomlConfig struct {
	Scan struct {
		Root           *string `toml:"root"`
		MaxFileSize    any     `toml:"max_file_size"`
		FollowSymlinks *bool   `toml:"follow_symlinks"`
		Tokenize       *string `toml:"tokenize"`
		MinTokenLength *int    `toml:"min_token_length"`
	} `toml:"scan"`
	Performance struct {
		Workers *int `toml:"workers"`
	} `toml:"performance"`
	Watch struct {
		Enabled    *bool `toml:"enabled"`
		DebounceMs *int  `toml:"debounce_ms"`
	} `toml:"watch"`
	Report struct {
		Top    *int    `toml:"top"`
		Format *string `toml:"format"`
	} `toml:"report"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// LoadTOML loads configuration from dir/.atomscan.toml. It returns nil, nil
// when the file does not exist.
func LoadTOML(dir string) (*Config, error) {
	tomlPath := filepath.Join(dir, TOMLFileName)
	if !fileExists(tomlPath) {
		return nil, nil
	}

	content, err := os.ReadFile(tomlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TOMLFileName, err)
	}

	cfg, err := parseTOML(content)
	if err != nil {
		return nil, err
	}
	resolveRoot(cfg, dir)
	return cfg, nil
}

func parseTOML(content []byte) (*Config, error) {
	var raw tomlConfig
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := Default("")

	if raw.Scan.Root != nil {
		cfg.Scan.Root = *raw.Scan.Root
	}
	switch v := raw.Scan.MaxFileSize.(type) {
	case nil:
	case int64:
		cfg.Scan.MaxFileSize = v
	case string:
		sz, err := parseSize(v)
		if err != nil {
			return nil, fmt.Errorf("invalid max_file_size %q: %w", v, err)
		}
		cfg.Scan.MaxFileSize = sz
	default:
		return nil, fmt.Errorf("invalid max_file_size: expected integer or size string, got %T", v)
	}
	if raw.Scan.FollowSymlinks != nil {
		cfg.Scan.FollowSymlinks = *raw.Scan.FollowSymlinks
	}
	if raw.Scan.Tokenize != nil {
		cfg.Scan.Tokenize = *raw.Scan.Tokenize
	}
	if raw.Scan.MinTokenLength != nil {
		cfg.Scan.MinTokenLength = *raw.Scan.MinTokenLength
	}
	if raw.Performance.Workers != nil {
		cfg.Performance.Workers = *raw.Performance.Workers
	}
	if raw.Watch.Enabled != nil {
		cfg.Watch.Enabled = *raw.Watch.Enabled
	}
	if raw.Watch.DebounceMs != nil {
		cfg.Watch.DebounceMs = *raw.Watch.DebounceMs
	}
	if raw.Report.Top != nil {
		cfg.Report.Top = *raw.Report.Top
	}
	if raw.Report.Format != nil {
		cfg.Report.Format = *raw.Report.Format
	}
	cfg.Include = append(cfg.Include, raw.Include...)
	cfg.MergeExclusions(raw.Exclude...)

	return cfg, nil
}
