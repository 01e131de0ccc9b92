package parser

import (
	"fmt"
	"path/filepath"
	"sort"
)

// ExpandGlobs expands glob patterns into a deduplicated, sorted list of
// existing paths. Patterns matching nothing contribute nothing.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				result = append(result, match)
			}
		}
	}

	sort.Strings(result)
	return result, nil
}

// ExpandExtensions lists files in dir whose extension, compared without
// case, is one of exts. Extensions include the leading dot.
func ExpandExtensions(dir string, exts ...string) ([]string, error) {
	var patterns []string
	for _, ext := range exts {
		patterns = append(patterns, filepath.Join(dir, "*"+caseFold(ext)))
	}
	return ExpandGlobs(patterns)
}

// caseFold turns ".tif" into ".[tT][iI][fF]" so globbing ignores case.
func caseFold(ext string) string {
	var b []byte
	for i := 0; i < len(ext); i++ {
		c := ext[i]
		lower, upper := c, c
		if c >= 'A' && c <= 'Z' {
			lower = c + 'a' - 'A'
		}
		if c >= 'a' && c <= 'z' {
			upper = c - ('a' - 'A')
		}
		if lower == upper {
			b = append(b, c)
			continue
		}
		b = append(b, '[', lower, upper, ']')
	}
	return string(b)
}
