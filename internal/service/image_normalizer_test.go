package service

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"strings"
	"testing"

	"pdf-page-server/internal/domain"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "aGVsbG8=", "hello", false},
		{"missing padding", "aGVsbG8", "hello", false},
		{"data uri", "data:image/png;base64,aGVsbG8=", "hello", false},
		{"embedded whitespace", "aGVs\nbG8=", "hello", false},
		{"url alphabet", "-_8", "\xfb\xff", false},
		{"empty", "   ", "", true},
		{"garbage", "!!!!", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestImageNormalizer_DecodeFormats(t *testing.T) {
	n := NewImageNormalizer()

	jpg, err := n.Decode(jpegBase64(t, 40, 20))
	if err != nil {
		t.Fatalf("unexpected jpeg error: %v", err)
	}
	if jpg.Format != "JPEG" || jpg.Width != 40 || jpg.Height != 20 {
		t.Fatalf("unexpected jpeg result: %s %dx%d", jpg.Format, jpg.Width, jpg.Height)
	}

	png, err := n.Decode("data:image/png;base64," + pngBase64(t, 10, 30))
	if err != nil {
		t.Fatalf("unexpected png error: %v", err)
	}
	if png.Format != "PNG" || png.Width != 10 || png.Height != 30 {
		t.Fatalf("unexpected png result: %s %dx%d", png.Format, png.Width, png.Height)
	}
}

func TestImageNormalizer_NormalizeSkipsEmptyEntries(t *testing.T) {
	n := NewImageNormalizer()

	images := []*string{nil, strPtr(""), strPtr(pngBase64(t, 8, 8)), strPtr("  "), strPtr(jpegBase64(t, 8, 8))}
	got, err := n.Normalize(images)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 images, got %d", len(got))
	}
	if got[0].Format != "PNG" || got[1].Format != "JPEG" {
		t.Fatalf("expected input order to be kept, got %s then %s", got[0].Format, got[1].Format)
	}
}

func TestImageNormalizer_NormalizeReportsIndex(t *testing.T) {
	n := NewImageNormalizer()

	images := []*string{strPtr(pngBase64(t, 4, 4)), nil, strPtr("bm90IGFuIGltYWdl")}
	_, err := n.Normalize(images)

	var decodeErr *domain.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Index != 2 {
		t.Fatalf("expected index 2, got %d", decodeErr.Index)
	}
	if !strings.Contains(err.Error(), "2") {
		t.Fatalf("expected index in message, got %q", err.Error())
	}
}

// pngHeaderBase64 encodes just the signature and IHDR chunk of an RGBA PNG
// claiming the given size, which is all image.DecodeConfig reads.
func pngHeaderBase64(width, height uint32) string {
	var ihdr bytes.Buffer
	ihdr.WriteString("IHDR")
	binary.Write(&ihdr, binary.BigEndian, width)
	binary.Write(&ihdr, binary.BigEndian, height)
	ihdr.Write([]byte{8, 6, 0, 0, 0})

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(ihdr.Len()-4))
	buf.Write(ihdr.Bytes())
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(ihdr.Bytes()))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestImageNormalizer_RejectsOversizedImage(t *testing.T) {
	n := NewImageNormalizer()

	_, err := n.Normalize([]*string{strPtr(pngBase64(t, 4, 4)), strPtr(pngHeaderBase64(50000, 50000))})

	var decodeErr *domain.DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Index != 1 {
		t.Fatalf("expected DecodeError at index 1, got %v", err)
	}
	if !errors.Is(err, errImageTooLarge) {
		t.Fatalf("expected pixel limit error, got %v", err)
	}
}

func TestImageNormalizer_PixelLimitBoundary(t *testing.T) {
	n := NewImageNormalizer()

	// 13377 * 13378 is just over the limit; the header alone must be enough to refuse it.
	if _, err := n.Decode(pngHeaderBase64(13377, 13378)); !errors.Is(err, errImageTooLarge) {
		t.Fatalf("expected pixel limit error, got %v", err)
	}
}
