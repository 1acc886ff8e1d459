package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.record("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.record("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) record(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, line)
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.record("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.record("WARN: " + msg)
}

// writeTestPDF writes a PDF with the given number of A4 pages, each labelled
// "original page N".
func writeTestPDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()
	return writeSizedTestPDF(t, dir, name, "A4", pages)
}

func writeSizedTestPDF(t *testing.T, dir, name, size string, pages int) string {
	t.Helper()

	pdf := fpdf.New("P", "pt", size, "")
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, fmt.Sprintf("original page %d", i+1))
	}

	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("failed to write fixture pdf: %v", err)
	}
	return path
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func jpegBase64(t *testing.T, w, h int) string {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(w, h), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// pageDims returns the media box of every page of the PDF at path, in page order.
func pageDims(t *testing.T, path string) []types.Dim {
	t.Helper()

	disablePDFConfigDir.Do(api.DisableConfigDir)
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	dims, err := api.PageDims(f, newPDFConfiguration())
	if err != nil {
		t.Fatalf("failed to read page dimensions: %v", err)
	}
	return dims
}

// pageContents returns the decoded content stream of every page in rs.
func pageContents(t *testing.T, rs io.ReadSeeker) []string {
	t.Helper()

	disablePDFConfigDir.Do(api.DisableConfigDir)
	ctx, err := api.ReadAndValidate(rs, newPDFConfiguration())
	if err != nil {
		t.Fatalf("failed to read pdf: %v", err)
	}

	contents := make([]string, 0, ctx.PageCount)
	for n := 1; n <= ctx.PageCount; n++ {
		r, err := pdfcpu.ExtractPageContent(ctx, n)
		if err != nil {
			t.Fatalf("failed to extract page %d: %v", n, err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		contents = append(contents, string(data))
	}
	return contents
}

func pageContentsFile(t *testing.T, path string) []string {
	t.Helper()
	return pageContents(t, bytes.NewReader(readFile(t, path)))
}

func sameDim(got types.Dim, width, height float64) bool {
	return math.Abs(got.Width-width) < 0.5 && math.Abs(got.Height-height) < 0.5
}

func strPtr(s string) *string {
	return &s
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return data
}
