package service

import (
	"fmt"
	"io"
	"os"
	"sync"

	"pdf-page-server/internal/domain"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disablePDFConfigDir sync.Once

// DocumentAssembler merges an existing PDF with freshly produced pages.
type DocumentAssembler struct {
	logger domain.Logger
}

// NewDocumentAssembler creates a new document assembler
func NewDocumentAssembler(logger domain.Logger) *DocumentAssembler {
	// pdfcpu would otherwise create a config directory under the user's home.
	disablePDFConfigDir.Do(api.DisableConfigDir)
	return &DocumentAssembler{logger: logger}
}

// pdfcpu mutates the configuration per command, so every call gets its own.
func newPDFConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the PDF at path.
func (a *DocumentAssembler) PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return api.PageCount(f, newPDFConfiguration())
}

// Validate checks that rs holds a readable PDF.
func (a *DocumentAssembler) Validate(rs io.ReadSeeker) error {
	if err := api.Validate(rs, newPDFConfiguration()); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidFile, err)
	}
	return nil
}

// Assemble writes originalPath's pages followed by the pages produced by
// appendix into outputPath. The appendix is staged in a temporary file that
// is removed on every exit path. It returns the appendix page count.
func (a *DocumentAssembler) Assemble(originalPath string, appendix func(w io.Writer) error, outputPath string) (int, error) {
	staged, err := os.CreateTemp("", "pdf-appendix-*.pdf")
	if err != nil {
		return 0, &domain.AssemblyError{Stage: domain.StageStage, Err: err}
	}
	stagedPath := staged.Name()
	defer func() {
		if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
			a.logger.Warn("Failed to remove staged pages", "path", stagedPath, "error", err)
		}
	}()

	if err := appendix(staged); err != nil {
		staged.Close()
		return 0, &domain.AssemblyError{Stage: domain.StageRender, Err: err}
	}
	if err := staged.Close(); err != nil {
		return 0, &domain.AssemblyError{Stage: domain.StageStage, Err: err}
	}

	added, err := a.PageCount(stagedPath)
	if err != nil {
		return 0, &domain.AssemblyError{Stage: domain.StageReadAppendix, Err: err}
	}

	inFiles := []string{originalPath, stagedPath}
	if err := api.MergeCreateFile(inFiles, outputPath, false, newPDFConfiguration()); err != nil {
		return 0, &domain.AssemblyError{Stage: domain.StageMerge, Err: err}
	}

	a.logger.Debug("Assembled document", "original", originalPath, "output", outputPath, "pages_added", added)
	return added, nil
}
