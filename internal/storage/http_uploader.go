package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/spec-kit/feedx-service/internal/domain"
)

// HTTPUploader posts each file to a remote upload endpoint as multipart form
// data with a single "file" field, authenticated with the caller's token.
type HTTPUploader struct {
	endpoint string
	client   *http.Client
}

// NewHTTPUploader builds an uploader targeting endpoint.
func NewHTTPUploader(endpoint string, timeout time.Duration) *HTTPUploader {
	return &HTTPUploader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type uploadResponse struct {
	URL  string `json:"url"`
	Data *struct {
		URL string `json:"url"`
	} `json:"data"`
	Error any `json:"error"`
}

// Upload sends the file and returns the URL reported by the remote store.
func (u *HTTPUploader) Upload(ctx context.Context, session domain.Session, file File) (string, error) {
	rc, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", file.Name, err)
	}
	defer rc.Close()

	var payload bytes.Buffer
	form := multipart.NewWriter(&payload)
	if err := writeFilePart(form, file, rc); err != nil {
		return "", fmt.Errorf("encoding %s: %w", file.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &payload)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if session.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", file.Name, err)
	}
	defer resp.Body.Close()

	var body uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding upload response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("upload rejected with status %d: %v", resp.StatusCode, body.Error)
	}

	url := body.URL
	if url == "" && body.Data != nil {
		url = body.Data.URL
	}
	if url == "" {
		return "", fmt.Errorf("upload response for %s carried no url", file.Name)
	}
	return url, nil
}

func writeFilePart(form *multipart.Writer, file File, content io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	return form.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
