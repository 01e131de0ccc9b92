package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
)

// Candidate is a discovered simulation-defining file.
type Candidate struct {
	Path string

	// Companion is the required artifact found next to Path, if any was
	// required.
	Companion string
}

// Discovery configures a directory scan for simulation-defining files.
type Discovery struct {
	// Pattern is a filepath.Glob pattern.
	Pattern string

	// Accept filters matches before the companion check. Nil accepts all.
	Accept func(path string) bool

	// Companion names the artifact a candidate needs. Nil requires none.
	Companion func(path string) string
}

// Discover returns the candidates matching d in sorted order, and the
// matches excluded for lacking their companion. Exclusions are logged, not
// returned as errors.
func Discover(ctx context.Context, d Discovery) (found []Candidate, excluded []string, err error) {
	matches, err := filepath.Glob(d.Pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid discovery pattern %q: %w", d.Pattern, err)
	}
	sort.Strings(matches)

	log := ctxlog.FromContext(ctx)
	for _, m := range matches {
		if d.Accept != nil && !d.Accept(m) {
			continue
		}
		c := Candidate{Path: m}
		if d.Companion != nil {
			c.Companion = d.Companion(m)
			if !exists(c.Companion) {
				log.Warn("simulation excluded: companion file not found", "path", m, "companion", c.Companion)
				excluded = append(excluded, m)
				continue
			}
		}
		found = append(found, c)
	}
	return found, excluded, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// QuoteMeta escapes the glob metacharacters in s so it matches literally
// inside a Discovery pattern.
func QuoteMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
