// Package hdf reads named string attributes from HDF5 files, such as the
// results file HEC-RAS writes next to each plan.
package hdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/hdf5"
)

// maxAttrLen bounds the fixed-length buffer string attributes are read into.
const maxAttrLen = 64 * 1024

// ErrNoAttribute reports a group or attribute that is not in the file.
var ErrNoAttribute = errors.New("attribute not found")

// Container is an open file whose attributes can be read by group path and
// attribute name.
type Container interface {
	StringAttr(group, name string) (string, error)
	Close() error
}

// Opener opens a Container.
type Opener func(path string) (Container, error)

// File is a Container backed by the HDF5 library.
type File struct {
	path string
	f    *hdf5.File
}

// Open opens path read-only.
func Open(path string) (Container, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return &File{path: path, f: f}, nil
}

// StringAttr reads a string attribute attached to group ("/" is the root).
func (h *File) StringAttr(group, name string) (string, error) {
	if group == "" {
		group = "/"
	}
	g, err := h.f.OpenGroup(group)
	if err != nil {
		return "", fmt.Errorf("%s: group %q: %w", h.path, group, ErrNoAttribute)
	}
	defer g.Close()

	attr, err := g.OpenAttribute(name)
	if err != nil {
		return "", fmt.Errorf("%s: %s/%s: %w", h.path, group, name, ErrNoAttribute)
	}
	defer attr.Close()

	mem, err := hdf5.T_C_S1.Copy()
	if err != nil {
		return "", fmt.Errorf("creating string type: %w", err)
	}
	defer mem.Close()
	if err := mem.SetSize(maxAttrLen); err != nil {
		return "", fmt.Errorf("sizing string type: %w", err)
	}

	buf := make([]byte, maxAttrLen)
	if err := attr.Read(&buf[0], mem); err != nil {
		return "", fmt.Errorf("%s: reading %s/%s: %w", h.path, group, name, err)
	}
	return clean(buf), nil
}

// Close releases the file handle.
func (h *File) Close() error {
	return h.f.Close()
}

func clean(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return strings.TrimSpace(string(buf))
}
