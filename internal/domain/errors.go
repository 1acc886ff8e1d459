package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrDocumentNotFound     = errors.New("document not found")
	ErrOpenDocumentNotFound = errors.New("no open document found")
	ErrInvalidFile          = errors.New("invalid file")
	ErrFileTooLarge         = errors.New("file too large")
	ErrNoImages             = errors.New("no images to append")
	ErrDocumentExists       = errors.New("document already exists")
	ErrDiscoveryUnavailable = errors.New("open document discovery unavailable")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// DecodeError reports an image entry that could not be decoded.
// Index is the position of the entry in the caller's list.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NotFoundError reports a target path missing before any write began.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("target document not found: %s", e.Path)
}

// Is lets errors.Is(err, ErrDocumentNotFound) match a missing target.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrDocumentNotFound
}

// Assembly stages. Only the read and merge stages depend on the documents
// themselves; the rest are local I/O or self-checks.
const (
	StageReadOriginal = "read original"
	StageReadAppendix = "read appendix"
	StageMerge        = "merge"
	StageRender       = "render"
	StageStage        = "stage"
	StageCreateOutput = "create output"
	StageReadOutput   = "read output"
	StageVerify       = "verify"
)

// AssemblyError reports a fault while reading or writing PDF structure.
type AssemblyError struct {
	Stage string
	Err   error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assemble document (%s): %v", e.Stage, e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// InputFault reports whether the failure lies in the PDFs being combined
// rather than in the server.
func (e *AssemblyError) InputFault() bool {
	switch e.Stage {
	case StageReadOriginal, StageReadAppendix, StageMerge:
		return true
	}
	return false
}

// ReplaceError reports a failed move of the assembled file onto the target.
// Restored tells whether the target holds its pre-operation content. BackupPath
// is empty when the failure happened before a backup existed.
type ReplaceError struct {
	TargetPath string
	BackupPath string
	Restored   bool
	Err        error
}

func (e *ReplaceError) Error() string {
	if e.BackupPath == "" {
		return fmt.Sprintf("replace %s: %v (target left unchanged)", e.TargetPath, e.Err)
	}
	if e.Restored {
		return fmt.Sprintf("replace %s: %v (restored from backup %s)", e.TargetPath, e.Err, e.BackupPath)
	}
	return fmt.Sprintf("replace %s: %v (restore from backup %s failed)", e.TargetPath, e.Err, e.BackupPath)
}

func (e *ReplaceError) Unwrap() error { return e.Err }
