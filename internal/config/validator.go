package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	atomerrors "github.com/standardbeagle/atom/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults.
// Failures are returned as *errors.ConfigError naming the offending field.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateScanConfig(&cfg.Scan); err != nil {
		return err
	}

	if cfg.Performance.Workers < 0 {
		return atomerrors.NewConfigError("performance.workers", strconv.Itoa(cfg.Performance.Workers),
			errors.New("workers cannot be negative"))
	}

	if cfg.Watch.DebounceMs < 0 {
		return atomerrors.NewConfigError("watch.debounce_ms", strconv.Itoa(cfg.Watch.DebounceMs),
			errors.New("debounce cannot be negative"))
	}

	if err := v.validateReportConfig(&cfg.Report); err != nil {
		return err
	}

	if err := v.validatePatterns("include", cfg.Include); err != nil {
		return err
	}
	if err := v.validatePatterns("exclude", cfg.Exclude); err != nil {
		return err
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateScanConfig(scan *Scan) error {
	if scan.Root == "" {
		return atomerrors.NewConfigError("scan.root", "", errors.New("scan root cannot be empty"))
	}

	if scan.MaxFileSize <= 0 {
		return atomerrors.NewConfigError("scan.max_file_size", strconv.FormatInt(scan.MaxFileSize, 10),
			fmt.Errorf("max_file_size must be positive, got %d", scan.MaxFileSize))
	}

	switch scan.Tokenize {
	case TokenizeWords, TokenizeLines, TokenizeFields:
	default:
		return atomerrors.NewConfigError("scan.tokenize", scan.Tokenize,
			fmt.Errorf("tokenize must be one of %q, %q, %q", TokenizeWords, TokenizeLines, TokenizeFields))
	}

	if scan.MinTokenLength < 0 {
		return atomerrors.NewConfigError("scan.min_token_length", strconv.Itoa(scan.MinTokenLength),
			errors.New("min_token_length cannot be negative"))
	}

	return nil
}

func (v *Validator) validateReportConfig(report *Report) error {
	if report.Top < 0 {
		return atomerrors.NewConfigError("report.top", strconv.Itoa(report.Top),
			errors.New("top cannot be negative"))
	}

	switch report.Format {
	case FormatText, FormatJSON:
	default:
		return atomerrors.NewConfigError("report.format", report.Format,
			fmt.Errorf("format must be %q or %q", FormatText, FormatJSON))
	}

	return nil
}

func (v *Validator) validatePatterns(field string, patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return atomerrors.NewConfigError(field, p, doublestar.ErrBadPattern)
		}
	}
	return nil
}

// setSmartDefaults applies defaults that depend on the machine
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Performance.Workers == 0 {
		cfg.Performance.Workers = runtime.NumCPU()
	}

	if cfg.Scan.MinTokenLength == 0 {
		cfg.Scan.MinTokenLength = 1
	}
}

// Validate is a convenience function for quick validation
func Validate(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
