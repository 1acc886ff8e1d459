package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"pdf-page-server/internal/domain"
)

func newTestPDFService(keepBackup bool) (*PDFService, *DocumentAssembler) {
	logger := NewMockLogger()
	assembler := NewDocumentAssembler(logger)
	svc := NewPDFService(
		NewImageNormalizer(),
		NewPageRasterizer(testA4),
		assembler,
		NewReplacer(".backup", keepBackup, logger),
		NewPathLocks(),
		logger,
	)
	return svc, assembler
}

func TestPDFService_AppendImages(t *testing.T) {
	dir := t.TempDir()
	target := writeTestPDF(t, dir, "target.pdf", 3)
	svc, assembler := newTestPDFService(false)

	result, err := svc.AppendImages(context.Background(), domain.AppendRequest{
		TargetPath: target,
		Text:       "Appended by scanner",
		Images:     []*string{strPtr(pngBase64(t, 800, 600)), strPtr(jpegBase64(t, 30, 90))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.PagesAdded != 2 || result.TotalPages != 5 {
		t.Fatalf("expected 2 added / 5 total, got %+v", result)
	}
	if pages, _ := assembler.PageCount(target); pages != 5 {
		t.Fatalf("expected 5 pages on disk, got %d", pages)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if result.SizeBytes != info.Size() {
		t.Fatalf("expected size %d, got %d", info.Size(), result.SizeBytes)
	}
	if result.BackupPath != "" {
		t.Fatalf("expected backup removed, got %s", result.BackupPath)
	}
	if _, err := os.Stat(target + ".backup"); !os.IsNotExist(err) {
		t.Fatalf("expected no backup left behind")
	}
}

func TestPDFService_AppendImagesPageOrderAndBanner(t *testing.T) {
	dir := t.TempDir()
	target := writeSizedTestPDF(t, dir, "target.pdf", "Letter", 3)
	svc, _ := newTestPDFService(false)

	_, err := svc.AppendImages(context.Background(), domain.AppendRequest{
		TargetPath: target,
		Text:       "Batch 7\nScanned at desk 2",
		Images:     []*string{strPtr(pngBase64(t, 800, 600)), strPtr(jpegBase64(t, 30, 90))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dims := pageDims(t, target)
	contents := pageContentsFile(t, target)
	if len(dims) != 5 || len(contents) != 5 {
		t.Fatalf("expected 5 pages, got %d dims and %d contents", len(dims), len(contents))
	}

	for i := 0; i < 3; i++ {
		if !sameDim(dims[i], 612, 792) {
			t.Fatalf("page %d: expected original Letter page, got %+v", i+1, dims[i])
		}
		label := fmt.Sprintf("(original page %d)", i+1)
		if !strings.Contains(contents[i], label) {
			t.Fatalf("page %d: expected %s", i+1, label)
		}
		if strings.Contains(contents[i], "(Batch 7)") {
			t.Fatalf("page %d: original page must not carry the banner", i+1)
		}
	}
	for i := 3; i < 5; i++ {
		if !sameDim(dims[i], testA4.Width, testA4.Height) {
			t.Fatalf("page %d: expected new A4 page, got %+v", i+1, dims[i])
		}
		for _, line := range []string{"(Batch 7)", "(Scanned at desk 2)"} {
			if !strings.Contains(contents[i], line) {
				t.Fatalf("page %d: expected banner line %s", i+1, line)
			}
		}
	}
}

func TestPDFService_AppendKeepsTargetMode(t *testing.T) {
	dir := t.TempDir()
	target := writeTestPDF(t, dir, "target.pdf", 1)
	if err := os.Chmod(target, 0o644); err != nil {
		t.Fatal(err)
	}
	svc, _ := newTestPDFService(false)

	if _, err := svc.AppendImages(context.Background(), domain.AppendRequest{
		TargetPath: target,
		Images:     []*string{strPtr(pngBase64(t, 8, 8))},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("expected mode 0644 kept, got %o", info.Mode().Perm())
	}
}

func TestPDFService_AppendImagesSkipsEmptyEntries(t *testing.T) {
	dir := t.TempDir()
	target := writeTestPDF(t, dir, "target.pdf", 2)
	svc, _ := newTestPDFService(true)

	result, err := svc.AppendImages(context.Background(), domain.AppendRequest{
		TargetPath: target,
		Images:     []*string{nil, strPtr(""), strPtr(pngBase64(t, 16, 16))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PagesAdded != 1 || result.TotalPages != 3 {
		t.Fatalf("expected 1 added / 3 total, got %+v", result)
	}
	if result.BackupPath != target+".backup" {
		t.Fatalf("expected retained backup, got %q", result.BackupPath)
	}
}

func TestPDFService_AppendImagesLeavesTargetOnFailure(t *testing.T) {
	dir := t.TempDir()
	target := writeTestPDF(t, dir, "target.pdf", 2)
	before := readFile(t, target)
	svc, _ := newTestPDFService(false)

	tests := []struct {
		name   string
		images []*string
		check  func(error) bool
	}{
		{"no images", []*string{nil, strPtr("")}, func(err error) bool { return errors.Is(err, domain.ErrNoImages) }},
		{"decode failure", []*string{strPtr(pngBase64(t, 4, 4)), strPtr("%%%")}, func(err error) bool {
			var d *domain.DecodeError
			return errors.As(err, &d) && d.Index == 1
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AppendImages(context.Background(), domain.AppendRequest{TargetPath: target, Images: tt.images})
			if !tt.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := readFile(t, target); !bytes.Equal(got, before) {
				t.Fatalf("target changed on failure")
			}
		})
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected only the target in %s, found %d entries", dir, len(entries))
	}
}

func TestPDFService_MissingTarget(t *testing.T) {
	svc, _ := newTestPDFService(false)
	missing := filepath.Join(t.TempDir(), "missing.pdf")

	_, err := svc.AppendImages(context.Background(), domain.AppendRequest{
		TargetPath: missing,
		Images:     []*string{strPtr(pngBase64(t, 4, 4))},
	})

	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected NotFoundError to match ErrDocumentNotFound")
	}
}

func TestPDFService_DirectoryTarget(t *testing.T) {
	svc, _ := newTestPDFService(false)

	_, err := svc.AppendImages(context.Background(), domain.AppendRequest{
		TargetPath: t.TempDir(),
		Images:     []*string{strPtr(pngBase64(t, 4, 4))},
	})

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPDFService_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	target := writeTestPDF(t, dir, "target.pdf", 1)
	svc, assembler := newTestPDFService(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.AppendImages(ctx, domain.AppendRequest{
		TargetPath: target,
		Images:     []*string{strPtr(pngBase64(t, 4, 4))},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if pages, _ := assembler.PageCount(target); pages != 1 {
		t.Fatalf("expected target untouched, has %d pages", pages)
	}
}

func TestPDFService_AppendDocument(t *testing.T) {
	dir := t.TempDir()
	target := writeTestPDF(t, dir, "target.pdf", 2)
	extra := writeTestPDF(t, dir, "extra.pdf", 4)
	svc, _ := newTestPDFService(false)

	result, err := svc.AppendDocument(context.Background(), target, bytes.NewReader(readFile(t, extra)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PagesAdded != 4 || result.TotalPages != 6 {
		t.Fatalf("expected 4 added / 6 total, got %+v", result)
	}
}

func TestPDFService_ConcurrentAppendsToSameTarget(t *testing.T) {
	dir := t.TempDir()
	target := writeTestPDF(t, dir, "target.pdf", 1)
	svc, assembler := newTestPDFService(false)
	img := pngBase64(t, 8, 8)

	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AppendImages(context.Background(), domain.AppendRequest{
				TargetPath: target,
				Images:     []*string{strPtr(img)},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if pages, _ := assembler.PageCount(target); pages != 1+workers {
		t.Fatalf("expected %d pages, got %d", 1+workers, pages)
	}
}
