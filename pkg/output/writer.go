package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Writer places documents under Root/<dialect>/<project>.
type Writer struct {
	Root string
}

// NewWriter returns a Writer rooted at root.
func NewWriter(root string) *Writer {
	return &Writer{Root: root}
}

// ProjectDir returns the output directory of a project.
func (w *Writer) ProjectDir(dialect, project string) string {
	return filepath.Join(w.Root, SanitizeName(dialect), SanitizeName(project))
}

// ModelApplicationName is the file name of a project's model application
// document.
func ModelApplicationName(project string) string {
	return SanitizeName(project) + "_model_application.json"
}

// SimulationName is the file name of one simulation document.
func SimulationName(project, simulation string) string {
	return SanitizeName(project) + "_" + SanitizeName(simulation) + "_simulation.json"
}

// WriteJSON encodes v with four-space indentation and writes it to
// dir/name, replacing any previous file in one step.
func (w *Writer) WriteJSON(dir, name string, v any) (Document, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return Document{}, fmt.Errorf("encoding %s: %w", name, err)
	}

	path := filepath.Join(dir, name)
	if err := WriteFileAtomic(path, buf.Bytes()); err != nil {
		return Document{}, err
	}
	return Document{Name: name, Path: path, Bytes: int64(buf.Len())}, nil
}

// WriteFileAtomic writes data to a temporary file in the destination
// directory and renames it over path, so readers never observe a partial
// file.
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting mode on %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// SanitizeName makes s safe as a single path element: separators, spaces
// and characters reserved on Windows become underscores.
func SanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '\t':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, s)
}
