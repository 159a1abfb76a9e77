// Package openai provides a model backend using the OpenAI API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/model/schema"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// Ensure Backend implements the interface.
var _ driven.ModelBackend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 120 * time.Second

	// File-processing poll budget: 30 attempts at 1-second spacing,
	// after which the call fails as a processing timeout.
	filePollAttempts = 30
	filePollInterval = 1 * time.Second
)

// Config holds configuration for the OpenAI backend.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com).
	BaseURL string

	// Model is the model to use (default: gpt-4o).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// RequestsPerMinute caps the call rate; 0 disables limiting.
	RequestsPerMinute int
}

// Backend analyses documents with the OpenAI API. The artifact is
// uploaded to the OpenAI file store before analysis and removed again
// afterwards, so a failed call path leaves no orphaned remote state.
type Backend struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	limiter *rate.Limiter

	// pollInterval is swappable for tests.
	pollInterval time.Duration
}

// NewBackend creates a new OpenAI backend.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Backend{
		client:       &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		limiter:      limiter,
		pollInterval: filePollInterval,
	}, nil
}

// Name identifies the backend.
func (b *Backend) Name() string {
	return "openai/" + b.model
}

// Analyze uploads the artifact, waits for remote processing, runs the
// structured-output request, and parses the proposals.
func (b *Backend) Analyze(ctx context.Context, req driven.AnalysisRequest) ([]domain.ModelProposal, error) {
	fileID, err := b.uploadFile(ctx, req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	// The remote copy is transient either way; failures here must not
	// strand it.
	defer b.cleanupFile(req.DocumentID, fileID)

	if err := b.waitForProcessed(ctx, fileID); err != nil {
		return nil, err
	}

	raw, err := b.respond(ctx, fileID, req)
	if err != nil {
		return nil, err
	}

	return schema.ExtractProposals(raw)
}

// uploadFile pushes the artifact to the OpenAI file store.
func (b *Backend) uploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFileUnreadable, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", "user_data"); err != nil {
		return "", fmt.Errorf("writing purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copying file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/files", &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	respBody, err := b.do(ctx, httpReq)
	if err != nil {
		return "", err
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &uploaded); err != nil || uploaded.ID == "" {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	return uploaded.ID, nil
}

// waitForProcessed polls the file until the store reports it processed.
// The hard attempt ceiling turns a stuck file into a timeout failure on
// the same path as any other backend error.
func (b *Backend) waitForProcessed(ctx context.Context, fileID string) error {
	for attempt := 0; attempt < filePollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.pollInterval):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/files/"+fileID, http.NoBody)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

		respBody, err := b.do(ctx, httpReq)
		if err != nil {
			return err
		}

		var file struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(respBody, &file); err != nil {
			return fmt.Errorf("decoding file status: %w", err)
		}
		switch file.Status {
		case "processed":
			return nil
		case "error":
			return fmt.Errorf("openai: file %s failed remote processing", fileID)
		}
	}
	return fmt.Errorf("%w: file %s not processed after %d attempts", domain.ErrProcessingTimeout, fileID, filePollAttempts)
}

// respond runs the analysis request against the uploaded file.
func (b *Backend) respond(ctx context.Context, fileID string, req driven.AnalysisRequest) (string, error) {
	payload := map[string]any{
		"model": b.model,
		"input": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "input_file", "file_id": fileID},
					{"type": "input_text", "text": schema.Prompt(req.Jurisdiction, req.Course)},
				},
			},
		},
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/responses", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	respBody, err := b.do(ctx, httpReq)
	if err != nil {
		return "", err
	}

	var resp struct {
		Output []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("openai error: %s", resp.Error.Message)
	}

	var text string
	for _, out := range resp.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" {
				text += content.Text
			}
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: no output text returned", domain.ErrMalformedOutput)
	}
	return text, nil
}

// cleanupFile removes the uploaded artifact from the remote store.
// Failures are logged and never escalated.
func (b *Backend) cleanupFile(documentID, fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.baseURL+"/v1/files/"+fileID, http.NoBody)
	if err != nil {
		log.Printf("openai: creating cleanup request for document %s: %v", documentID, err)
		return
	}
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	if _, err := b.do(ctx, httpReq); err != nil {
		log.Printf("openai: cleaning up remote file %s for document %s: %v", fileID, documentID, err)
	}
}

// do applies rate limiting, sends the request, and returns the body of
// a 2xx response.
func (b *Backend) do(ctx context.Context, req *http.Request) ([]byte, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Ping validates the API key against the models endpoint.
func (b *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/v1/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	if _, err := b.do(ctx, req); err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (b *Backend) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
