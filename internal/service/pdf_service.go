package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"pdf-page-server/internal/domain"
)

// PDFService implements the page-append pipeline on PDFs stored on disk
type PDFService struct {
	normalizer *ImageNormalizer
	rasterizer *PageRasterizer
	assembler  *DocumentAssembler
	replacer   *Replacer
	locks      *PathLocks
	logger     domain.Logger
}

// NewPDFService creates a new PDF service instance
func NewPDFService(
	normalizer *ImageNormalizer,
	rasterizer *PageRasterizer,
	assembler *DocumentAssembler,
	replacer *Replacer,
	locks *PathLocks,
	logger domain.Logger,
) *PDFService {
	return &PDFService{
		normalizer: normalizer,
		rasterizer: rasterizer,
		assembler:  assembler,
		replacer:   replacer,
		locks:      locks,
		logger:     logger,
	}
}

// AppendImages renders every non-empty image onto its own page and appends
// the pages to req.TargetPath in input order.
func (s *PDFService) AppendImages(ctx context.Context, req domain.AppendRequest) (*domain.AppendResult, error) {
	images, err := s.normalizer.Normalize(req.Images)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, domain.ErrNoImages
	}

	render := func(w io.Writer) error {
		return s.rasterizer.Render(req.Text, images, w)
	}

	return s.appendPages(ctx, req.TargetPath, len(images), render)
}

// AppendDocument appends every page of the PDF read from pdf to targetPath.
func (s *PDFService) AppendDocument(ctx context.Context, targetPath string, pdf io.Reader) (*domain.AppendResult, error) {
	copyPDF := func(w io.Writer) error {
		_, err := io.Copy(w, pdf)
		return err
	}
	return s.appendPages(ctx, targetPath, -1, copyPDF)
}

// appendPages runs read-assemble-replace under the target's lock. expected is
// the number of pages appendix must produce, or -1 when unknown.
func (s *PDFService) appendPages(ctx context.Context, targetPath string, expected int, appendix func(io.Writer) error) (*domain.AppendResult, error) {
	target, err := resolveTarget(targetPath)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(target)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	originalPages, err := s.assembler.PageCount(target)
	if err != nil {
		return nil, &domain.AssemblyError{Stage: domain.StageReadOriginal, Err: err}
	}

	outputPath, err := s.replacer.TempPath(target)
	if err != nil {
		return nil, &domain.AssemblyError{Stage: domain.StageCreateOutput, Err: err}
	}
	handedOff := false
	defer func() {
		if !handedOff {
			os.Remove(outputPath)
		}
	}()

	added, err := s.assembler.Assemble(target, appendix, outputPath)
	if err != nil {
		return nil, err
	}
	if expected >= 0 && added != expected {
		return nil, &domain.AssemblyError{
			Stage: domain.StageVerify,
			Err:   fmt.Errorf("rendered %d pages for %d images", added, expected),
		}
	}

	total, err := s.assembler.PageCount(outputPath)
	if err != nil {
		return nil, &domain.AssemblyError{Stage: domain.StageReadOutput, Err: err}
	}
	if total != originalPages+added {
		return nil, &domain.AssemblyError{
			Stage: domain.StageVerify,
			Err:   fmt.Errorf("output has %d pages, want %d", total, originalPages+added),
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	handedOff = true
	backup, err := s.replacer.Replace(outputPath, target)
	if err != nil {
		s.logger.Error("Failed to replace target document", err, "target", target)
		return nil, err
	}

	var size int64
	if info, err := os.Stat(target); err == nil {
		size = info.Size()
	}

	s.logger.Info("Appended pages",
		"target", target,
		"pages_added", added,
		"total_pages", total,
		"size_bytes", size,
	)

	return &domain.AppendResult{
		TargetPath: target,
		PagesAdded: added,
		TotalPages: total,
		SizeBytes:  size,
		BackupPath: backup,
	}, nil
}

// resolveTarget returns the canonical path of an existing regular file.
func resolveTarget(path string) (string, error) {
	if path == "" {
		return "", &domain.NotFoundError{Path: path}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &domain.NotFoundError{Path: path}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &domain.NotFoundError{Path: path}
		}
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &domain.NotFoundError{Path: path}
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", &domain.ValidationError{Field: "target_path", Message: "not a regular file"}
	}

	return resolved, nil
}
