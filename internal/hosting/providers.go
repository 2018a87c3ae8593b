package hosting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/westmount/faxbridge/internal/document"
)

// Default endpoints of the free hosting services
const (
	DefaultFileIOEndpoint     = "https://file.io"
	DefaultTransferShEndpoint = "https://transfer.sh"
)

// Provider uploads a document to one external hosting service
type Provider interface {
	Name() string
	Upload(ctx context.Context, doc *document.Document) (*Reference, error)
}

// FileIO uploads to file.io, a free temporary file host. Uploaded files are
// deleted by the service after the first download, which suits a fax
// provider that fetches the content exactly once.
type FileIO struct {
	endpoint string
	client   *http.Client
}

// NewFileIO creates a file.io provider. An empty endpoint uses the public
// service; tests point it at a local server.
func NewFileIO(endpoint string, client *http.Client) *FileIO {
	if endpoint == "" {
		endpoint = DefaultFileIOEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &FileIO{endpoint: endpoint, client: client}
}

// Name identifies the provider
func (f *FileIO) Name() string { return "file.io" }

// fileIOResponse is the subset of the file.io upload response we read
type fileIOResponse struct {
	Success bool   `json:"success"`
	Link    string `json:"link"`
	Key     string `json:"key"`
	Error   string `json:"error"`
}

// Upload posts the document as a multipart form
func (f *FileIO) Upload(ctx context.Context, doc *document.Document) (*Reference, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", doc.Name)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed fileIOResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if !parsed.Success || parsed.Link == "" {
		reason := parsed.Error
		if reason == "" {
			reason = "service reported failure"
		}
		return nil, fmt.Errorf("upload rejected: %s", reason)
	}

	return &Reference{URL: parsed.Link, Service: f.Name()}, nil
}

// TransferSh uploads to transfer.sh via a plain PUT. Limits the file to one
// download and one day of retention.
type TransferSh struct {
	endpoint string
	client   *http.Client
}

// NewTransferSh creates a transfer.sh provider
func NewTransferSh(endpoint string, client *http.Client) *TransferSh {
	if endpoint == "" {
		endpoint = DefaultTransferShEndpoint
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TransferSh{endpoint: endpoint, client: client}
}

// Name identifies the provider
func (t *TransferSh) Name() string { return "transfer.sh" }

// Upload puts the document bytes and reads the URL from the response body
func (t *TransferSh) Upload(ctx context.Context, doc *document.Document) (*Reference, error) {
	url := fmt.Sprintf("%s/%s", strings.TrimRight(t.endpoint, "/"), doc.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(doc.Data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", doc.ContentType)
	req.Header.Set("Max-Downloads", "1")
	req.Header.Set("Max-Days", "1")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed: %d - %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	link := strings.TrimSpace(string(raw))
	if link == "" {
		return nil, fmt.Errorf("malformed response: empty body")
	}

	return &Reference{URL: link, Service: t.Name()}, nil
}
