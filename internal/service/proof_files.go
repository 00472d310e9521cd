package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/feedx-service/internal/domain"
	"github.com/spec-kit/feedx-service/internal/storage"
)

// Proof file limits.
const (
	DefaultMaxProofFiles = 3
	DefaultMaxProofBytes = 5 * 1024 * 1024
)

var errNoUploader = errors.New("no uploader configured")

// ProofLimits bounds the proof files of one issue.
type ProofLimits struct {
	MaxFiles int
	MaxBytes int64
}

func (l ProofLimits) withDefaults() ProofLimits {
	if l.MaxFiles <= 0 {
		l.MaxFiles = DefaultMaxProofFiles
	}
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxProofBytes
	}
	return l
}

// FileRejection reports why one file was not accepted.
type FileRejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// UploadOutcome pairs a file with the result of uploading it.
type UploadOutcome struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Succeeded reports whether the upload produced a URL.
func (o UploadOutcome) Succeeded() bool {
	return o.Error == "" && o.URL != ""
}

// FilterProofFiles splits a batch into accepted files and rejections. Each
// file is checked for type, then size, then whether a slot is left; attached
// counts files already on the form. Rejected files never consume a slot.
func FilterProofFiles(files []storage.File, attached int, limits ProofLimits) ([]storage.File, []FileRejection) {
	limits = limits.withDefaults()
	var (
		accepted []storage.File
		rejected []FileRejection
	)
	for _, file := range files {
		switch {
		case !storage.AllowedMIME[declaredType(file)]:
			rejected = append(rejected, FileRejection{Filename: file.Name, Reason: fmt.Sprintf("%s is not a supported format", file.Name)})
		case file.Size > limits.MaxBytes:
			rejected = append(rejected, FileRejection{Filename: file.Name, Reason: fmt.Sprintf("%s exceeds %s limit", file.Name, humanBytes(limits.MaxBytes))})
		case attached+len(accepted) >= limits.MaxFiles:
			rejected = append(rejected, FileRejection{Filename: file.Name, Reason: fmt.Sprintf("Maximum %d files allowed", limits.MaxFiles)})
		default:
			accepted = append(accepted, file)
		}
	}
	return accepted, rejected
}

// uploadSequentially folds the accepted files into outcomes, one upload at a
// time. A failed upload is recorded and the fold moves on.
func uploadSequentially(ctx context.Context, uploader storage.Uploader, session domain.Session, files []storage.File, logger *zap.Logger) []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(files))
	for _, file := range files {
		if uploader == nil {
			outcomes = append(outcomes, UploadOutcome{Filename: file.Name, Error: errNoUploader.Error()})
			continue
		}
		url, err := uploader.Upload(ctx, session, file)
		if err != nil {
			logger.Warn("proof upload failed",
				zap.String("user_id", session.UserID),
				zap.String("filename", file.Name),
				zap.Error(err))
			outcomes = append(outcomes, UploadOutcome{Filename: file.Name, Error: err.Error()})
			continue
		}
		outcomes = append(outcomes, UploadOutcome{Filename: file.Name, URL: url})
	}
	return outcomes
}

// proofURLs returns the successful URLs in order, or nil when none succeeded.
func proofURLs(outcomes []UploadOutcome) []string {
	var urls []string
	for _, o := range outcomes {
		if o.Succeeded() {
			urls = append(urls, o.URL)
		}
	}
	return urls
}

// declaredType trusts the client's type unless it is missing or generic, in
// which case the extension decides.
func declaredType(file storage.File) string {
	contentType := file.ContentType
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(file.Name)))
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}

func humanBytes(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
