// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds callers distinguish. Typed errors
// below carry details and match these through errors.Is.
var (
	ErrNotFound        = errors.New("content not found")
	ErrInvalid         = errors.New("invalid content")
	ErrUnknownType     = errors.New("unknown content type")
	ErrConflict        = errors.New("slug already in use")
	ErrBodyUnavailable = errors.New("content body unavailable")
	ErrFileIO          = errors.New("content file error")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// UnknownTypeError reports a content type that is not configured. It is a
// validation failure as well.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown content type %q", e.Type)
}

func (e *UnknownTypeError) Is(target error) bool {
	return target == ErrUnknownType || target == ErrInvalid
}

// SlugConflictError reports a (type, slug) pair that is already taken.
type SlugConflictError struct {
	Type string
	Slug string
}

func (e *SlugConflictError) Error() string {
	return fmt.Sprintf("slug %q already in use for type %q", e.Slug, e.Type)
}

func (e *SlugConflictError) Unwrap() error { return ErrConflict }

// FileError wraps a failed body file operation.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Is(target error) bool { return target == ErrFileIO }

func (e *FileError) Unwrap() error { return e.Err }

// IsNotFound reports whether err means the content does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalid reports whether err is a validation failure.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }

// IsConflict reports whether err is a slug conflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
