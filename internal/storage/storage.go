// Package storage holds proof-file uploads and resolves stored references to
// fetchable URLs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/spec-kit/feedx-service/internal/domain"
)

// Accepted proof file types.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimePDF  = "application/pdf"
)

// AllowedMIME lists the accepted proof file types.
var AllowedMIME = map[string]bool{
	MimeJPEG: true,
	MimePNG:  true,
	MimePDF:  true,
}

var (
	// ErrUnsupportedType is returned when sniffed content is not an accepted type.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when content exceeds the configured ceiling.
	ErrTooLarge = errors.New("file too large")
)

// File is a single proof file as received from the client.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// BytesFile wraps in-memory content as a File.
func BytesFile(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Uploader stores one file and returns the reference to persist on the issue.
type Uploader interface {
	Upload(ctx context.Context, session domain.Session, file File) (string, error)
}
