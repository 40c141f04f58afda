// Package pathutil converts between the absolute paths the scanner works with
// and the root-relative forms used for glob matching and display.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to one relative to rootDir.
// Paths that are already relative, lie outside rootDir, or cannot be made
// relative are returned unchanged.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" || !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	relPath, err := filepath.Rel(filepath.Clean(rootDir), absPath)
	if err != nil || outsideRoot(relPath) {
		return absPath
	}
	return relPath
}

// MatchKey returns path relative to rootDir with forward slashes, the form
// include and exclude globs are matched against. A path that cannot be made
// relative is returned slash-separated as is.
func MatchKey(path, rootDir string) string {
	rel, err := filepath.Rel(rootDir, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// ".." or "../x", but not a file named "..x"
func outsideRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
