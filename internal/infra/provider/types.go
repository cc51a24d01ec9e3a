package provider

import "fmt"

// Run statuses reported by the provider. The run lifecycle is provider-owned:
// queued -> in_progress -> {completed | failed | cancelled | requires_action}.
const (
	RunStatusQueued         = "queued"
	RunStatusInProgress     = "in_progress"
	RunStatusCompleted      = "completed"
	RunStatusFailed         = "failed"
	RunStatusCancelled      = "cancelled"
	RunStatusRequiresAction = "requires_action"
)

// IsTerminalRunStatus reports whether a run has finished; requires_action is
// terminal from this system's point of view since tool submission is not
// part of the flow.
func IsTerminalRunStatus(status string) bool {
	switch status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusRequiresAction:
		return true
	}
	return false
}

// Error is returned for any non-2xx provider response or transport failure.
type Error struct {
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider: %v", e.Err)
	}
	return fmt.Sprintf("provider: status %d: %s", e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

type VectorStore struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ToolResources struct {
	FileSearch *FileSearchResources `json:"file_search,omitempty"`
}

type FileSearchResources struct {
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
}

type Assistant struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Model         string         `json:"model"`
	Instructions  string         `json:"instructions"`
	ToolResources *ToolResources `json:"tool_resources,omitempty"`
}

// AssistantParams carries create/update fields; nil pointers are omitted so
// updates only touch what the caller sent.
type AssistantParams struct {
	Name          *string        `json:"name,omitempty"`
	Description   *string        `json:"description,omitempty"`
	Model         *string        `json:"model,omitempty"`
	Instructions  *string        `json:"instructions,omitempty"`
	Tools         []Tool         `json:"tools,omitempty"`
	ToolResources *ToolResources `json:"tool_resources,omitempty"`
}

type Tool struct {
	Type string `json:"type"`
}

type File struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
}

type FileBatch struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Thread struct {
	ID string `json:"id"`
}

type Message struct {
	ID        string        `json:"id"`
	ThreadID  string        `json:"thread_id"`
	Role      string        `json:"role"`
	RunID     string        `json:"run_id"`
	Content   []ContentPart `json:"content"`
	CreatedAt int64         `json:"created_at"`
}

type ContentPart struct {
	Type string `json:"type"`
	Text *Text  `json:"text,omitempty"`
}

type Text struct {
	Value string `json:"value"`
}

// PlainText concatenates the text parts of a provider message.
func (m Message) PlainText() string {
	var out string
	for _, p := range m.Content {
		if p.Type == "text" && p.Text != nil {
			out += p.Text.Value
		}
	}
	return out
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Run struct {
	ID        string `json:"id"`
	ThreadID  string `json:"thread_id"`
	Status    string `json:"status"`
	Usage     *Usage `json:"usage,omitempty"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error,omitempty"`
}

type messageList struct {
	Data []Message `json:"data"`
}

type deleted struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
