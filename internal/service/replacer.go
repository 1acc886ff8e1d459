package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"pdf-page-server/internal/domain"
)

// Replacer swaps an assembled file in for its target, keeping a backup copy
// until the swap is confirmed.
type Replacer struct {
	backupSuffix string
	keepBackup   bool
	logger       domain.Logger

	// rename is os.Rename outside of tests.
	rename func(oldpath, newpath string) error
}

// NewReplacer creates a new replacer
func NewReplacer(backupSuffix string, keepBackup bool, logger domain.Logger) *Replacer {
	if backupSuffix == "" {
		backupSuffix = ".backup"
	}
	return &Replacer{
		backupSuffix: backupSuffix,
		keepBackup:   keepBackup,
		logger:       logger,
		rename:       os.Rename,
	}
}

// BackupPath returns the sibling path used to back up target.
func (r *Replacer) BackupPath(target string) string {
	return target + r.backupSuffix
}

// TempPath reserves an empty file next to target so the final rename stays
// on one filesystem.
func (r *Replacer) TempPath(target string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// Replace moves tempPath over target. The temp file is consumed on every
// path. It returns the backup path when the backup is retained.
func (r *Replacer) Replace(tempPath, target string) (string, error) {
	backup := r.BackupPath(target)

	if err := syncFile(tempPath); err != nil {
		os.Remove(tempPath)
		return "", &domain.ReplaceError{TargetPath: target, Restored: true, Err: fmt.Errorf("sync assembled file: %w", err)}
	}

	// The temp file is created 0600; the replaced document keeps its own mode.
	if info, err := os.Stat(target); err == nil {
		if err := os.Chmod(tempPath, info.Mode().Perm()); err != nil {
			os.Remove(tempPath)
			return "", &domain.ReplaceError{TargetPath: target, Restored: true, Err: fmt.Errorf("copy permissions: %w", err)}
		}
	}

	if err := copyFile(target, backup); err != nil {
		os.Remove(tempPath)
		os.Remove(backup)
		return "", &domain.ReplaceError{TargetPath: target, Restored: true, Err: fmt.Errorf("create backup: %w", err)}
	}

	if err := r.rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		restoreErr := copyFile(backup, target)
		if restoreErr != nil {
			r.logger.Error("Failed to restore target from backup", restoreErr, "target", target, "backup", backup)
		} else {
			r.logger.Warn("Restored target from backup after failed replace", "target", target, "backup", backup)
		}
		return backup, &domain.ReplaceError{
			TargetPath: target,
			BackupPath: backup,
			Restored:   restoreErr == nil,
			Err:        err,
		}
	}

	syncDir(filepath.Dir(target))

	if r.keepBackup {
		return backup, nil
	}
	if err := os.Remove(backup); err != nil {
		r.logger.Warn("Failed to remove backup", "backup", backup, "error", err)
		return backup, nil
	}
	return "", nil
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// syncDir flushes a rename to disk where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// copyFile copies src over dst, preserving src's permissions, and fsyncs dst.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
