// Package pathutil converts library paths for display.
//
// Library paths are kept as resolved internally; user-facing output (catalog
// dumps, MCP responses) shows them relative to the project root.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/app/libs/Demo.Widgets", "/home/user/app") → "libs/Demo.Widgets"
//   - ToRelative("/usr/share/csac/System.cs", "/home/user/app") → "/usr/share/csac/System.cs" (outside root)
//   - ToRelative("libs/Demo.cs", "/home/user/app") → "libs/Demo.cs" (already relative)
func ToRelative(absPath, rootDir string) string {
	// Handle empty inputs
	if absPath == "" || rootDir == "" {
		return absPath
	}

	// If path is already relative, return as-is
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	// Clean both paths to normalize separators and remove redundant elements
	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	// Try to make relative
	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// Conversion failed (e.g., different drives on Windows) - return absolute
		return absPath
	}

	// If the relative path starts with ".." it means the file is outside the root
	// In this case, return the absolute path as it's clearer
	if strings.HasPrefix(relPath, "..") {
		return absPath
	}

	return relPath
}

// ToRelativeAll converts every path in paths. It returns a new slice and
// leaves paths untouched; used at output boundaries (CLI catalog dumps, MCP
// responses).
func ToRelativeAll(paths []string, rootDir string) []string {
	if len(paths) == 0 {
		return paths
	}
	converted := make([]string, len(paths))
	for i, p := range paths {
		converted[i] = ToRelative(p, rootDir)
	}
	return converted
}
