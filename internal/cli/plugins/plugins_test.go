package plugins

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/waterinstitute/hecmeta/pkg/config"
)

func writePlugin(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, Prefix+name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("failed to create test plugin: %v", err)
	}
	return path
}

func TestFinder_NotFound(t *testing.T) {
	f := &Finder{Dirs: []string{t.TempDir()}}
	_, err := f.Find("nonexistent-plugin-xyz")
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestFinder_SearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	want := writePlugin(t, first, "sync", "#!/bin/sh\n")
	writePlugin(t, second, "sync", "#!/bin/sh\n")
	other := writePlugin(t, second, "publish", "#!/bin/sh\n")

	f := &Finder{Dirs: []string{first, second}}

	got, err := f.Find("sync")
	if err != nil {
		t.Fatalf("expected to find plugin, got error: %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	got, err = f.Find("publish")
	if err != nil || got != other {
		t.Errorf("Find(publish) = %s, %v; want %s", got, err, other)
	}
}

func TestFinder_RejectsPaths(t *testing.T) {
	dir := t.TempDir()
	writePlugin(t, dir, "ok", "#!/bin/sh\n")

	f := &Finder{Dirs: []string{dir}}
	for _, name := range []string{"", "../ok", `..\ok`} {
		if _, err := f.Find(name); !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("Find(%q) error = %v, want ErrPluginNotFound", name, err)
		}
	}
}

func TestExecute_ExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		return
	}
	dir := t.TempDir()
	ok := writePlugin(t, dir, "ok", "#!/bin/sh\ntest \"$HECMETA_OUTPUT_DIR\" = /data/out\n")
	fail := writePlugin(t, dir, "fail", "#!/bin/sh\nexit 3\n")

	env := Environment(&config.Settings{OutputDir: "/data/out"})
	if code := Execute(context.Background(), ok, nil, env); code != 0 {
		t.Errorf("Execute(ok) = %d, want 0", code)
	}
	if code := Execute(context.Background(), fail, nil, env); code != 3 {
		t.Errorf("Execute(fail) = %d, want 3", code)
	}
}

func TestEnvironment(t *testing.T) {
	env := Environment(&config.Settings{OutputDir: "/out", LogLevel: "debug"})
	want := []string{config.EnvOutputDir + "=/out", "HECMETA_LOG_LEVEL=debug"}
	if len(env) != len(want) {
		t.Fatalf("Environment() = %v, want %v", env, want)
	}
	for i := range want {
		if env[i] != want[i] {
			t.Errorf("env[%d] = %q, want %q", i, env[i], want[i])
		}
	}
}

func TestFormatNotFoundError(t *testing.T) {
	msg := FormatNotFoundError("sync")

	for _, want := range []string{`unknown command "sync"`, "hecmeta-sync", "~/.config/hecmeta/plugins/hecmeta-sync"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected message to contain %q:\n%s", want, msg)
		}
	}
}

func TestIsExecutable(t *testing.T) {
	tmpDir := t.TempDir()

	nonExec := filepath.Join(tmpDir, "nonexec")
	if err := os.WriteFile(nonExec, []byte("test"), 0o644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if isExecutable(nonExec) {
		t.Error("non-executable file should not be detected as executable")
	}

	execPath := filepath.Join(tmpDir, "exec")
	if err := os.WriteFile(execPath, []byte("test"), 0o755); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if !isExecutable(execPath) {
		t.Error("executable file should be detected as executable")
	}

	if isExecutable(filepath.Join(tmpDir, "nonexistent")) {
		t.Error("non-existent file should not be detected as executable")
	}
	if isExecutable(tmpDir) {
		t.Error("directory should not be detected as executable")
	}
}
