package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/covalent-team/covalent/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Client is the surface of the external AI provider consumed by the
// orchestration core. Every component receives it by injection so tests can
// substitute doubles; there is no package-level shared instance.
type Client interface {
	CreateVectorStore(ctx context.Context, name string) (*VectorStore, error)
	UpdateVectorStore(ctx context.Context, id, name string) (*VectorStore, error)
	DeleteVectorStore(ctx context.Context, id string) error

	CreateAssistant(ctx context.Context, params AssistantParams) (*Assistant, error)
	RetrieveAssistant(ctx context.Context, id string) (*Assistant, error)
	UpdateAssistant(ctx context.Context, id string, params AssistantParams) (*Assistant, error)
	DeleteAssistant(ctx context.Context, id string) error

	UploadFile(ctx context.Context, filename string, data []byte) (*File, error)
	DeleteFile(ctx context.Context, id string) error

	AddFileToVectorStore(ctx context.Context, storeID, fileID string) error
	AddFileBatchToVectorStore(ctx context.Context, storeID string, fileIDs []string) (*FileBatch, error)
	RemoveFileFromVectorStore(ctx context.Context, storeID, fileID string) error

	CreateThread(ctx context.Context) (*Thread, error)
	CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error)
	ListMessages(ctx context.Context, threadID string, runID string) ([]Message, error)

	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error)
}

// HTTPClient talks to an OpenAI-compatible assistants API over REST.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(cfg *config.Config, log *zap.Logger) *HTTPClient {
	timeout := time.Duration(cfg.Provider.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &HTTPClient{
		baseURL: cfg.Provider.BaseURL,
		apiKey:  cfg.Provider.APIKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log,
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := sonic.Marshal(body)
		if err != nil {
			return &Error{Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *HTTPClient) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("provider request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(respBody)))
		return &Error{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := sonic.Unmarshal(respBody, out); err != nil {
			return &Error{Err: fmt.Errorf("unmarshal response: %w", err)}
		}
	}
	return nil
}

// --- vector stores ---

func (c *HTTPClient) CreateVectorStore(ctx context.Context, name string) (*VectorStore, error) {
	var vs VectorStore
	err := c.do(ctx, http.MethodPost, "/vector_stores", map[string]any{"name": name}, &vs)
	if err != nil {
		return nil, err
	}
	return &vs, nil
}

func (c *HTTPClient) UpdateVectorStore(ctx context.Context, id, name string) (*VectorStore, error) {
	var vs VectorStore
	err := c.do(ctx, http.MethodPost, "/vector_stores/"+id, map[string]any{"name": name}, &vs)
	if err != nil {
		return nil, err
	}
	return &vs, nil
}

func (c *HTTPClient) DeleteVectorStore(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/vector_stores/"+id, nil, &deleted{})
}

// --- assistants ---

func (c *HTTPClient) CreateAssistant(ctx context.Context, params AssistantParams) (*Assistant, error) {
	var a Assistant
	if err := c.do(ctx, http.MethodPost, "/assistants", params, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTPClient) RetrieveAssistant(ctx context.Context, id string) (*Assistant, error) {
	var a Assistant
	if err := c.do(ctx, http.MethodGet, "/assistants/"+id, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTPClient) UpdateAssistant(ctx context.Context, id string, params AssistantParams) (*Assistant, error) {
	var a Assistant
	if err := c.do(ctx, http.MethodPost, "/assistants/"+id, params, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTPClient) DeleteAssistant(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/assistants/"+id, nil, &deleted{})
}

// --- files ---

func (c *HTTPClient) UploadFile(ctx context.Context, filename string, data []byte) (*File, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("purpose", "assistants"); err != nil {
		return nil, &Error{Err: err}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, &Error{Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &Error{Err: err}
	}
	if err := w.Close(); err != nil {
		return nil, &Error{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	var f File
	if err := c.send(req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *HTTPClient) DeleteFile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/files/"+id, nil, &deleted{})
}

// --- vector store files ---

func (c *HTTPClient) AddFileToVectorStore(ctx context.Context, storeID, fileID string) error {
	return c.do(ctx, http.MethodPost, "/vector_stores/"+storeID+"/files",
		map[string]any{"file_id": fileID}, nil)
}

func (c *HTTPClient) AddFileBatchToVectorStore(ctx context.Context, storeID string, fileIDs []string) (*FileBatch, error) {
	var b FileBatch
	err := c.do(ctx, http.MethodPost, "/vector_stores/"+storeID+"/file_batches",
		map[string]any{"file_ids": fileIDs}, &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *HTTPClient) RemoveFileFromVectorStore(ctx context.Context, storeID, fileID string) error {
	return c.do(ctx, http.MethodDelete, "/vector_stores/"+storeID+"/files/"+fileID, nil, &deleted{})
}

// --- threads / messages / runs ---

func (c *HTTPClient) CreateThread(ctx context.Context) (*Thread, error) {
	var t Thread
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) CreateMessage(ctx context.Context, threadID, role, content string) (*Message, error) {
	var m Message
	err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages",
		map[string]any{"role": role, "content": content}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns the thread's messages, optionally filtered to a run,
// oldest first.
func (c *HTTPClient) ListMessages(ctx context.Context, threadID string, runID string) ([]Message, error) {
	path := "/threads/" + threadID + "/messages?order=asc"
	if runID != "" {
		path += "&run_id=" + runID
	}
	var list messageList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *HTTPClient) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	var r Run
	err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs",
		map[string]any{"assistant_id": assistantID}, &r)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var r Run
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
