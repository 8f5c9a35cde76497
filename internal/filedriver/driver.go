// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package filedriver reads and writes content body files. Files are the
// source of truth for body text and authoring metadata; the database only
// holds a queryable projection of them.
package filedriver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotExist is returned (wrapped) when a content file is missing.
var ErrNotExist = os.ErrNotExist

// Document is the decoded form of a content file.
type Document struct {
	Meta    map[string]any `json:"meta"`
	Content string         `json:"content"`
}

// Driver reads and writes one file format. Drivers are selected per
// content type, so callers never special-case a format.
type Driver interface {
	// Name is the configuration name of the driver ("markdown", "json").
	Name() string
	// Extension is the file extension without the dot.
	Extension() string
	Exists(path string) bool
	// Read decodes the file at path. A missing file yields an error that
	// matches ErrNotExist.
	Read(path string) (*Document, error)
	// Write encodes doc and replaces the file at path atomically, creating
	// parent directories as needed.
	Write(path string, doc *Document) error
	// Delete removes the file. Deleting a missing file is not an error.
	Delete(path string) error
	// Render converts body content into HTML.
	Render(content string) (string, error)
	// Normalize returns content as Read would return it after a Write.
	Normalize(content string) string
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeAtomic writes data to a temp file next to path and renames it into
// place so readers never observe a partially written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

func remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Move renames a content file, creating the target directory when needed.
// Moving onto an existing file fails with os.ErrExist.
func Move(from, to string) error {
	if from == to {
		return nil
	}
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("move %s: %w", to, os.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", filepath.Dir(to), err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("move %s to %s: %w", from, to, err)
	}
	return nil
}
