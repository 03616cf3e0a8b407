// Package transport is the single HTTP path to the records authority.
// It attaches the current bearer credential, normalizes non-2xx responses
// into *Error, and never retries; retry policy belongs to callers.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/medvault/medvault/pkg/logging"
)

var tracer = otel.Tracer("medvault.internal.transport")

// CredentialSource yields the current bearer token, or "" when anonymous.
// An empty token is not an error here; the authority rejects the call.
type CredentialSource interface {
	Token() string
}

// Error is a remote rejection: a non-2xx status with its response body
// preserved for caller display.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote rejection: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the records authority at a single base address.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	logger     *logging.Logger
	metrics    *Metrics
}

// New creates a transport client. creds may be nil for a permanently
// anonymous client; metrics may be nil to disable instrumentation.
func New(baseURL string, timeout time.Duration, creds CredentialSource, logger *logging.Logger, metrics *Metrics) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
		logger:     logger,
		metrics:    metrics,
	}
}

// BaseURL reports the resolved base address.
func (c *Client) BaseURL() string { return c.baseURL }

// DoJSON sends body (JSON-encoded when non-nil) and decodes a JSON
// response into out when out is non-nil and the body is non-empty.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("transport: marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
		contentType = "application/json"
	}
	respBody, _, err := c.do(ctx, method, path, contentType, reader)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// DoForm posts URL-encoded form values (the login shape).
func (c *Client) DoForm(ctx context.Context, path string, form url.Values, out any) error {
	respBody, _, err := c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// DoMultipart posts a multipart form with one file part plus string fields.
// The boundary is generated by the multipart writer.
func (c *Client) DoMultipart(ctx context.Context, path string, fields map[string]string, fileField, filename string, file io.Reader, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("transport: write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return fmt.Errorf("transport: create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("transport: copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("transport: close multipart writer: %w", err)
	}

	respBody, _, err := c.do(ctx, http.MethodPost, path, w.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	return decode(respBody, out)
}

// Fetch retrieves a raw binary payload and its content type.
func (c *Client) Fetch(ctx context.Context, path string) ([]byte, string, error) {
	return c.do(ctx, http.MethodGet, path, "", nil)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "transport."+method, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.path", path))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, "", fmt.Errorf("transport: create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.creds != nil {
		if tok := c.creds.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, "fault", time.Since(start).Seconds())
		return nil, "", fmt.Errorf("transport: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(method, "fault", time.Since(start).Seconds())
		return nil, "", fmt.Errorf("transport: read response: %w", err)
	}
	c.metrics.ObserveRequest(method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Debug("request rejected", "method", method, "path", path, "status", resp.StatusCode)
		return nil, "", &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	return respBody, resp.Header.Get("Content-Type"), nil
}

func decode(body []byte, out any) error {
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("transport: unmarshal response: %w", err)
	}
	return nil
}
