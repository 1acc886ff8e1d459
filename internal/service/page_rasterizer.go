package service

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"pdf-page-server/internal/domain"

	"codeberg.org/go-pdf/fpdf"
)

const (
	pointsPerCM = 72 / 2.54

	// Banner layout: left margin and first baseline are 2 cm from the page edge.
	bannerMargin     = 2 * pointsPerCM
	bannerLineHeight = 14.0
	bannerFont       = "Helvetica"
	bannerFontSize   = 12.0
)

// PageRasterizer draws each image on its own fixed-size page.
type PageRasterizer struct {
	pageSize domain.PageSize
}

// NewPageRasterizer creates a rasterizer for the given page canvas
func NewPageRasterizer(pageSize domain.PageSize) *PageRasterizer {
	return &PageRasterizer{pageSize: pageSize}
}

// FitImage scales an image to fill the page along its constraining axis,
// keeping its aspect ratio, and centres it.
func FitImage(width, height int, page domain.PageSize) domain.Placement {
	if width <= 0 || height <= 0 {
		return domain.Placement{}
	}

	aspect := float64(width) / float64(height)

	var w, h float64
	if aspect > page.AspectRatio() {
		w = page.Width
		h = page.Width / aspect
	} else {
		h = page.Height
		w = page.Height * aspect
	}

	return domain.Placement{
		X:      (page.Width - w) / 2,
		Y:      (page.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}

// BannerLines splits banner text into lines, or returns nil for blank text.
func BannerLines(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

// Render writes a PDF holding one page per image to w. The banner, when
// present, is repeated at the top of every page.
func (r *PageRasterizer) Render(text string, images []domain.PageImage, w io.Writer) error {
	if len(images) == 0 {
		return domain.ErrNoImages
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: r.pageSize.Width, Ht: r.pageSize.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	lines := BannerLines(text)
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	for i, img := range images {
		pdf.AddPage()

		name := fmt.Sprintf("page-image-%d", i)
		opts := fpdf.ImageOptions{ImageType: img.Format, ReadDpi: false}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))

		p := FitImage(img.Width, img.Height, r.pageSize)
		pdf.ImageOptions(name, p.X, p.Y, p.Width, p.Height, false, opts, 0, "")

		if len(lines) > 0 {
			pdf.SetFont(bannerFont, "", bannerFontSize)
			for j, line := range lines {
				pdf.Text(bannerMargin, bannerMargin+float64(j)*bannerLineHeight, translate(line))
			}
		}

		if pdf.Err() {
			return fmt.Errorf("render page %d: %w", i+1, pdf.Error())
		}
	}

	return pdf.Output(w)
}
