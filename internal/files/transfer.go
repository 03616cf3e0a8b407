// Package files moves binary medical documents between this client and the
// authority: multipart upload, download to a local file, and inline preview
// through transient loopback handles.
package files

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/medvault/medvault/internal/records"
	"github.com/medvault/medvault/internal/transport"
	"github.com/medvault/medvault/pkg/logging"
)

// Transfer handles artifact movement. The preview server is started on
// first use and torn down by Close.
type Transfer struct {
	transport *transport.Client
	records   *records.Cache
	logger    *logging.Logger
	openURL   func(url string) error

	previewAddr  string
	previewGrace time.Duration

	mu       sync.Mutex
	previews *PreviewServer
}

func NewTransfer(tc *transport.Client, cache *records.Cache, previewAddr string, previewGrace time.Duration, logger *logging.Logger) *Transfer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Transfer{
		transport:    tc,
		records:      cache,
		logger:       logger,
		openURL:      OpenViewer,
		previewAddr:  previewAddr,
		previewGrace: previewGrace,
	}
}

// Upload posts one file for a patient. After the authority confirms the
// write, the patient's document listing is refreshed best-effort: a failed
// refresh is logged, not surfaced, because the upload itself already
// succeeded.
func (t *Transfer) Upload(ctx context.Context, patientID int64, filename string, file io.Reader) (records.Document, error) {
	var doc records.Document
	fields := map[string]string{"patient_id": strconv.FormatInt(patientID, 10)}
	if err := t.transport.DoMultipart(ctx, "/files/upload", fields, "file", filename, file, &doc); err != nil {
		return records.Document{}, fmt.Errorf("upload %s: %w", filename, err)
	}
	if _, err := t.records.RefreshDocuments(ctx, patientID); err != nil {
		t.logger.Warn("post-upload document refresh failed", "patient_id", patientID, "error", err)
	}
	return doc, nil
}

// UploadFile is the path-based convenience over Upload.
func (t *Transfer) UploadFile(ctx context.Context, patientID int64, path string) (records.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return records.Document{}, fmt.Errorf("upload: open %s: %w", path, err)
	}
	defer f.Close()
	return t.Upload(ctx, patientID, filepath.Base(path), f)
}

// Download fetches a document's bytes and writes them to destPath. No file
// is created when the fetch fails.
func (t *Transfer) Download(ctx context.Context, documentID int64, destPath string) error {
	data, _, err := t.transport.Fetch(ctx, fmt.Sprintf("/files/%d/download", documentID))
	if err != nil {
		return fmt.Errorf("download document %d: %w", documentID, err)
	}
	if err := os.WriteFile(destPath, data, 0o644); err != nil {
		return fmt.Errorf("download document %d: write %s: %w", documentID, destPath, err)
	}
	t.logger.Info("document saved", "document_id", documentID, "path", destPath)
	return nil
}

// Preview fetches a document's bytes, registers a transient handle with the
// loopback preview server and asks the host's viewer to open it. When no
// viewer can be launched the URL is still returned for the caller to
// present. No handle is created when the fetch fails.
func (t *Transfer) Preview(ctx context.Context, documentID int64, filename string) (*Handle, error) {
	data, contentType, err := t.transport.Fetch(ctx, fmt.Sprintf("/files/%d/download", documentID))
	if err != nil {
		return nil, fmt.Errorf("preview document %d: %w", documentID, err)
	}

	previews, err := t.previewServer()
	if err != nil {
		return nil, err
	}
	h := previews.Register(filename, contentType, data)

	if err := t.openURL(h.URL()); err != nil {
		// Fallback path: the caller surfaces the URL instead.
		t.logger.Warn("no viewer available, open the preview URL manually", "url", h.URL(), "error", err)
	}
	return h, nil
}

// DeleteDocument removes a document remotely, then refreshes that
// patient's listing. A refresh failure is still surfaced, but worded so
// the caller can tell the document itself is already gone.
func (t *Transfer) DeleteDocument(ctx context.Context, documentID, patientID int64) error {
	if err := t.transport.DoJSON(ctx, http.MethodDelete, fmt.Sprintf("/files/%d", documentID), nil, nil); err != nil {
		return fmt.Errorf("delete document %d: %w", documentID, err)
	}
	if _, err := t.records.RefreshDocuments(ctx, patientID); err != nil {
		return fmt.Errorf("document %d deleted, but refreshing the listing failed: %w", documentID, err)
	}
	return nil
}

// PresignedURL asks the authority for a time-limited direct link.
func (t *Transfer) PresignedURL(ctx context.Context, documentID int64) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := t.transport.DoJSON(ctx, http.MethodGet, fmt.Sprintf("/files/%d/presigned", documentID), nil, &out); err != nil {
		return "", fmt.Errorf("presign document %d: %w", documentID, err)
	}
	return out.URL, nil
}

func (t *Transfer) previewServer() (*PreviewServer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.previews == nil {
		s, err := NewPreviewServer(t.previewAddr, t.previewGrace, t.logger)
		if err != nil {
			return nil, err
		}
		t.previews = s
	}
	return t.previews, nil
}

// Close stops the preview server, releasing any live handles.
func (t *Transfer) Close() error {
	t.mu.Lock()
	previews := t.previews
	t.previews = nil
	t.mu.Unlock()
	if previews == nil {
		return nil
	}
	return previews.Close()
}
