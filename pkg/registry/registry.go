// Package registry publishes written documents to a model registry over
// HTTP.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/output"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// Collection endpoints, relative to the registry URL.
const (
	ModelApplicationsPath = "/model_applications"
	SimulationsPath       = "/simulations"
)

// Client posts documents to a registry.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new registry client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// PublishOptions configures a registry request.
type PublishOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of publishing one document.
type Response struct {
	Document   string
	Endpoint   string
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the document was accepted (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Endpoint returns the collection URL for a document kind.
func Endpoint(base string, kind output.DocumentKind) (string, error) {
	base = strings.TrimRight(base, "/")
	switch kind {
	case output.KindModelApplication:
		return base + ModelApplicationsPath, nil
	case output.KindSimulation:
		return base + SimulationsPath, nil
	}
	return "", fmt.Errorf("no registry collection for document kind %q", kind)
}

// Publish posts one written document to its collection.
func (c *Client) Publish(ctx context.Context, doc output.Document, opts PublishOptions) *Response {
	start := time.Now()
	resp := &Response{Document: doc.Name}
	fail := func(err error) *Response {
		resp.Error = err
		resp.Duration = time.Since(start)
		return resp
	}

	endpoint, err := Endpoint(opts.URL, doc.Kind)
	if err != nil {
		return fail(err)
	}
	resp.Endpoint = endpoint

	payload, err := os.ReadFile(doc.Path)
	if err != nil {
		return fail(fmt.Errorf("failed to read document: %w", err))
	}
	if !json.Valid(payload) {
		return fail(fmt.Errorf("document %s is not valid JSON", doc.Path))
	}

	// Apply timeout
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hecmeta")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("request failed: %w", err))
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1024*1024)) // Limit to 1MB
	if err != nil {
		return fail(fmt.Errorf("failed to read response: %w", err))
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	return resp
}

// PublishProject posts every document of a project, simulations before the
// model application. Failures are logged and returned, never fatal.
func (c *Client) PublishProject(ctx context.Context, res output.ProjectResult, opts PublishOptions) []*Response {
	log := ctxlog.FromContext(ctx).With("project", res.Project)

	var out []*Response
	for _, doc := range res.Documents {
		r := c.Publish(ctx, doc, opts)
		if r.Success() {
			log.Info("document published", "document", doc.Name, "endpoint", r.Endpoint, "status", r.StatusCode)
		} else {
			log.Warn("document not published", "document", doc.Name, "endpoint", r.Endpoint, "error", r.Error)
		}
		out = append(out, r)
	}
	return out
}
