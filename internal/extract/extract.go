// Package extract turns uploaded study notes into plain text.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

var (
	// ErrTooLarge means the upload exceeds the configured limit.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupported means the declared type is not text, PDF, or a JPEG/PNG image.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrNoContent means nothing readable was extracted.
	ErrNoContent = errors.New("no readable content found")
)

// ImageDescriber turns an image into text, typically via a vision model.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, mimeType string, data []byte) (string, error)
}

// Upload is a received file with its declared content type.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Extractor converts uploads to text.
type Extractor struct {
	vision   ImageDescriber
	maxBytes int64
}

// New creates an Extractor. maxBytes <= 0 disables the size check.
func New(vision ImageDescriber, maxBytes int64) *Extractor {
	return &Extractor{vision: vision, maxBytes: maxBytes}
}

// Text extracts readable text from u. The declared type decides the path:
// anything mentioning "text" is decoded as UTF-8 with invalid bytes dropped,
// "pdf" goes through the PDF reader, and jpeg/jpg/png are described by the
// vision model.
func (e *Extractor) Text(ctx context.Context, u Upload) (string, error) {
	if e.maxBytes > 0 && int64(len(u.Data)) > e.maxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(u.Data), e.maxBytes)
	}

	kind := declaredType(u)
	var (
		text string
		err  error
	)
	switch {
	case strings.Contains(kind, "text"):
		text = strings.ToValidUTF8(string(u.Data), "")
	case strings.Contains(kind, "pdf"):
		text, err = pdfText(u.Data)
	case isImage(kind):
		if e.vision == nil {
			return "", fmt.Errorf("%w: image support disabled", ErrUnsupported)
		}
		text, err = e.vision.DescribeImage(ctx, imageMIME(kind), u.Data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, kind)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoContent
	}
	return text, nil
}

func declaredType(u Upload) string {
	kind := strings.ToLower(strings.TrimSpace(u.MIMEType))
	if kind == "" || kind == "application/octet-stream" {
		if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(u.Name))); byExt != "" {
			kind = strings.ToLower(byExt)
		}
	}
	return kind
}

func isImage(kind string) bool {
	for _, ext := range []string{"jpeg", "jpg", "png"} {
		if strings.Contains(kind, ext) {
			return true
		}
	}
	return false
}

func imageMIME(kind string) string {
	if strings.Contains(kind, "png") {
		return "image/png"
	}
	return "image/jpeg"
}

func pdfText(data []byte) (text string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return string(b), nil
}
