package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/feedx-service/internal/domain"
)

// LocalPrefix is the URL path under which DiskStore files are served.
const LocalPrefix = "/uploads"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// StoredFile describes a file written by DiskStore.
type StoredFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}

// DiskStore writes uploads below a directory served at LocalPrefix.
type DiskStore struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewDiskStore ensures dir exists and returns a store writing into it.
func NewDiskStore(dir string, maxBytes int64, logger *zap.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskStore{dir: dir, maxBytes: maxBytes, logger: logger, now: time.Now}, nil
}

// Dir returns the directory served at LocalPrefix.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save validates and writes one file. The stored name is the sanitised base
// name plus a millisecond stamp; the type is sniffed from the content.
func (s *DiskStore) Save(_ context.Context, file File) (*StoredFile, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file.Name, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	mimeType := sniffMIME(data)
	if !AllowedMIME[mimeType] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	name := storedName(file.Name, s.now())
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}

	s.logger.Info("proof file stored",
		zap.String("filename", file.Name),
		zap.String("stored_as", name),
		zap.Int("size", len(data)))

	return &StoredFile{
		URL:      LocalPrefix + "/" + name,
		Filename: file.Name,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}, nil
}

// Upload implements Uploader for deployments that keep files on local disk.
func (s *DiskStore) Upload(ctx context.Context, _ domain.Session, file File) (string, error) {
	stored, err := s.Save(ctx, file)
	if err != nil {
		return "", err
	}
	return stored.URL, nil
}

func storedName(original string, at time.Time) string {
	ext := filepath.Ext(original)
	base := unsafeNameChars.ReplaceAllString(strings.TrimSuffix(filepath.Base(original), ext), "")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s-%d%s", base, at.UnixMilli(), strings.ToLower(ext))
}

func sniffMIME(data []byte) string {
	detected := http.DetectContentType(data)
	if i := strings.IndexByte(detected, ';'); i >= 0 {
		detected = detected[:i]
	}
	return detected
}
