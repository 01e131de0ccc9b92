package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/output"
)

// Run extracts one project and returns its status string: a success
// message naming the output directory, or the failure trace. Run never
// panics.
func Run(ctx context.Context, d Driver, cfg config.Project, opts ...Option) string {
	res := RunProject(ctx, d, cfg, opts...)
	return res.Status
}

// RunProject is Run returning the full project result. Failures, including
// recovered panics, are reported through Outcome and Status.
func RunProject(ctx context.Context, d Driver, cfg config.Project, opts ...Option) (res output.ProjectResult) {
	software := string(cfg.Dialect)
	if d != nil {
		software = d.Dialect().Software()
	}
	res = output.ProjectResult{
		Dialect:     string(cfg.Dialect),
		ProjectFile: cfg.ProjectFile,
		Outcome:     output.OutcomeFailed,
	}

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = output.OutcomeFailed
			res.Status = fmt.Sprintf("%s extraction failed: panic: %v\n\n%s", software, r, debug.Stack())
			ctxlog.FromContext(ctx).Error("extraction panicked", "project_file", cfg.ProjectFile, "panic", r)
		}
	}()

	if d == nil {
		res.Status = fmt.Sprintf("%s extraction failed: no driver for dialect %q", software, cfg.Dialect)
		return res
	}

	got, err := New(cfg, opts...).Extract(ctx, d, cfg)
	if got != nil {
		res = *got
	}
	if err != nil {
		res.Outcome = output.OutcomeFailed
		res.Status = Trace(software, err)
		ctxlog.FromContext(ctx).Error("extraction failed", "project_file", cfg.ProjectFile, "error", err)
	}
	return res
}

// Trace formats err as a failure status, one line per wrapped cause.
func Trace(software string, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s extraction failed: %v", software, err)
	depth := 0
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		depth++
		fmt.Fprintf(&b, "\n%scaused by: %v", strings.Repeat("  ", depth), cause)
	}
	return b.String()
}
