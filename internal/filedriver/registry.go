// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package filedriver

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// TypeSpec configures where a content type lives under the content root
// and which driver encodes its files.
type TypeSpec struct {
	Path   string
	Driver string
}

type typeEntry struct {
	dir    string
	driver Driver
}

// Registry maps content types to their directory and driver.
type Registry struct {
	root  string
	types map[string]typeEntry
}

// ByName returns the driver registered under name.
func ByName(name string) (Driver, error) {
	switch strings.ToLower(name) {
	case "", "markdown", "md":
		return MarkdownDriver{}, nil
	case "json":
		return JSONDriver{}, nil
	default:
		return nil, fmt.Errorf("unknown file driver %q", name)
	}
}

// NewRegistry builds a registry rooted at root. An empty TypeSpec.Path
// defaults to the type name.
func NewRegistry(root string, types map[string]TypeSpec) (*Registry, error) {
	r := &Registry{root: filepath.Clean(root), types: make(map[string]typeEntry, len(types))}
	for name, spec := range types {
		if name == "" {
			return nil, fmt.Errorf("content type with empty name")
		}
		d, err := ByName(spec.Driver)
		if err != nil {
			return nil, fmt.Errorf("content type %q: %w", name, err)
		}
		dir := spec.Path
		if dir == "" {
			dir = name
		}
		if filepath.IsAbs(dir) || strings.HasPrefix(filepath.Clean(dir), "..") {
			return nil, fmt.Errorf("content type %q: path %q must be relative to the content root", name, dir)
		}
		r.types[name] = typeEntry{dir: filepath.Join(r.root, filepath.Clean(dir)), driver: d}
	}
	return r, nil
}

// Root returns the content root directory.
func (r *Registry) Root() string { return r.root }

// Has reports whether typ is a configured content type.
func (r *Registry) Has(typ string) bool {
	_, ok := r.types[typ]
	return ok
}

// Types returns the configured content types in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Driver returns the driver for typ.
func (r *Registry) Driver(typ string) (Driver, bool) {
	e, ok := r.types[typ]
	return e.driver, ok
}

// Dir returns the directory holding files of typ.
func (r *Registry) Dir(typ string) (string, bool) {
	e, ok := r.types[typ]
	return e.dir, ok
}

// FilePath derives the body file path for a type and slug.
func (r *Registry) FilePath(typ, slug string) (string, error) {
	e, ok := r.types[typ]
	if !ok {
		return "", fmt.Errorf("unknown content type %q", typ)
	}
	return filepath.Join(e.dir, slug+"."+e.driver.Extension()), nil
}

// Resolve maps a file path back to its content type and slug. It reports
// false for files outside every type directory, files in nested
// directories and files with a foreign extension.
func (r *Registry) Resolve(path string) (typ, slug string, ok bool) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	for name, e := range r.types {
		if dir != e.dir {
			continue
		}
		ext := "." + e.driver.Extension()
		if !strings.HasSuffix(base, ext) || strings.HasPrefix(base, ".") {
			continue
		}
		return name, strings.TrimSuffix(base, ext), true
	}
	return "", "", false
}
