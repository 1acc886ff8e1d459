package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"pdf-page-server/internal/domain"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxImagePixels bounds width*height before any pixel buffer is allocated.
const maxImagePixels = 178956970

var (
	errEmptyPayload     = errors.New("empty image payload")
	errInvalidDimension = errors.New("image has no pixels")
	errImageTooLarge    = errors.New("image exceeds pixel limit")
)

// ImageNormalizer turns transfer-encoded images into bytes the page canvas can embed.
type ImageNormalizer struct{}

// NewImageNormalizer creates a new image normalizer
func NewImageNormalizer() *ImageNormalizer {
	return &ImageNormalizer{}
}

// Normalize decodes every non-empty entry in order. Nil and empty entries are
// skipped. The first failure is returned as a *domain.DecodeError carrying the
// entry's index in images.
func (n *ImageNormalizer) Normalize(images []*string) ([]domain.PageImage, error) {
	out := make([]domain.PageImage, 0, len(images))
	for i, entry := range images {
		if entry == nil || strings.TrimSpace(*entry) == "" {
			continue
		}
		img, err := n.Decode(*entry)
		if err != nil {
			return nil, &domain.DecodeError{Index: i, Err: err}
		}
		out = append(out, img)
	}
	return out, nil
}

// Decode converts one encoded image. JPEG data is embedded as is; any other
// decodable format is re-encoded as 8-bit PNG.
func (n *ImageNormalizer) Decode(encoded string) (domain.PageImage, error) {
	raw, err := DecodePayload(encoded)
	if err != nil {
		return domain.PageImage{}, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return domain.PageImage{}, fmt.Errorf("unrecognised image data: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return domain.PageImage{}, errInvalidDimension
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return domain.PageImage{}, fmt.Errorf("%w: %dx%d", errImageTooLarge, cfg.Width, cfg.Height)
	}

	if format == "jpeg" {
		return domain.PageImage{Data: raw, Format: "JPEG", Width: cfg.Width, Height: cfg.Height}, nil
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return domain.PageImage{}, fmt.Errorf("decode %s: %w", format, err)
	}

	data, err := encodePNG(src)
	if err != nil {
		return domain.PageImage{}, err
	}

	return domain.PageImage{Data: data, Format: "PNG", Width: cfg.Width, Height: cfg.Height}, nil
}

// DecodePayload strips an optional data URI header, restores missing
// padding and base64-decodes the rest.
func DecodePayload(encoded string) ([]byte, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		if idx := strings.IndexByte(payload, ','); idx >= 0 {
			payload = payload[idx+1:]
		}
	}
	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return nil, errEmptyPayload
	}

	if missing := len(payload) % 4; missing != 0 {
		payload += strings.Repeat("=", 4-missing)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some clients send the URL-safe alphabet.
		if alt, altErr := base64.URLEncoding.DecodeString(payload); altErr == nil {
			return alt, nil
		}
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return raw, nil
}

// encodePNG flattens src to 8-bit NRGBA, which the canvas always accepts.
func encodePNG(src image.Image) ([]byte, error) {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
