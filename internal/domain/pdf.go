package domain

import (
	"context"
	"io"
)

// PageSize is a page canvas in PDF points.
type PageSize struct {
	Name   string  `json:"name"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AspectRatio returns width / height.
func (p PageSize) AspectRatio() float64 {
	return p.Width / p.Height
}

// PageImage is one decoded image waiting to be placed on its own page.
type PageImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Placement is where a scaled image lands on a page, origin top-left.
type Placement struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// AppendRequest is one invocation of the image append pipeline.
// Nil or empty entries in Images are skipped.
type AppendRequest struct {
	TargetPath string
	Text       string
	Images     []*string
}

// AppendResult summarises a successful append.
type AppendResult struct {
	TargetPath string `json:"target_document"`
	PagesAdded int    `json:"pages_added"`
	TotalPages int    `json:"total_pages"`
	SizeBytes  int64  `json:"size_bytes"`
	BackupPath string `json:"backup_path,omitempty"`
}

// OpenDocument is a PDF currently held open by a reader process.
type OpenDocument struct {
	Path        string `json:"path"`
	ProcessID   int32  `json:"process_id"`
	ProcessName string `json:"process_name"`
}

// PageAppender appends new trailing pages to a PDF on disk.
type PageAppender interface {
	AppendImages(ctx context.Context, req AppendRequest) (*AppendResult, error)
	AppendDocument(ctx context.Context, targetPath string, pdf io.Reader) (*AppendResult, error)
}

// DocumentLocator resolves the PDF currently open in a desktop reader.
type DocumentLocator interface {
	OpenDocuments(ctx context.Context) ([]OpenDocument, error)
	ResolveOpenDocument(ctx context.Context) (string, error)
}
