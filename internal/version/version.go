package version

import (
	"runtime/debug"
	"sync"
)

// Version information for atom and atomscan
const (
	// Version is the current semantic version
	Version = "0.2.0"
)

// Set during build with -ldflags "-X github.com/standardbeagle/atom/internal/version.GitCommit=..."
var (
	BuildDate = "development"
	GitCommit = "unknown"
)

// Info returns version information as a string
func Info() string {
	return Version
}

// FullInfo returns detailed version information
func FullInfo() string {
	return "atomscan " + Version + " (commit: " + commit() + ", built: " + BuildDate + ", " + goVersion() + ")"
}

var (
	buildInfo     *debug.BuildInfo
	buildInfoOnce sync.Once
)

func readBuildInfo() *debug.BuildInfo {
	buildInfoOnce.Do(func() {
		if info, ok := debug.ReadBuildInfo(); ok {
			buildInfo = info
		}
	})
	return buildInfo
}

// commit prefers the ldflags value and falls back to the VCS stamp
func commit() string {
	if GitCommit != "unknown" {
		return GitCommit
	}
	if info := readBuildInfo(); info != nil {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				return s.Value[:12]
			}
		}
	}
	return GitCommit
}

func goVersion() string {
	if info := readBuildInfo(); info != nil {
		return info.GoVersion
	}
	return "unknown go"
}
