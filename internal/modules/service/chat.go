package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/covalent-team/covalent/internal/config"
	"github.com/covalent-team/covalent/internal/infra/provider"
	"github.com/covalent-team/covalent/internal/modules/model"
	"github.com/covalent-team/covalent/internal/modules/repo"
	"github.com/covalent-team/covalent/internal/pkg/paging"
	"github.com/google/uuid"
	"github.com/tiktoken-go/tokenizer"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunHandle is the pending-run reference returned by SendMessage. The run
// itself lives on the provider; only its effects are persisted locally once
// terminal.
type RunHandle struct {
	RunID    string `json:"run_id"`
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

// SendMessageResult pairs the persisted user message with the pending run.
type SendMessageResult struct {
	Message *model.Message `json:"message"`
	Run     RunHandle      `json:"run"`
}

// RunStatusResult is one poll observation. Messages is populated only when
// the run has completed and its output has been harvested.
type RunStatusResult struct {
	Status   string           `json:"status"`
	Messages []*model.Message `json:"messages"`
}

// MessagePage is one keyset-paginated slice of a thread's history. A
// non-empty NextCursor means more rows follow.
type MessagePage struct {
	Messages   []*model.Message `json:"messages"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200
)

type ChatService interface {
	CreateThread(ctx context.Context, projectID, userID uuid.UUID, title string) (*model.Thread, error)
	ListThreads(ctx context.Context, projectID uuid.UUID) ([]*model.Thread, error)
	GetThread(ctx context.Context, threadID uuid.UUID) (*model.Thread, error)
	RenameThread(ctx context.Context, threadID uuid.UUID, title string) error
	DeleteThread(ctx context.Context, threadID uuid.UUID) error
	ListMessages(ctx context.Context, threadID uuid.UUID, cursor string, limit int) (*MessagePage, error)
	SendMessage(ctx context.Context, threadID, userID uuid.UUID, content string) (*SendMessageResult, error)
	CheckRunStatus(ctx context.Context, threadID uuid.UUID, runID string) (*RunStatusResult, error)
}

type chatService struct {
	threads  repo.ThreadRepo
	messages repo.MessageRepo
	projects repo.ProjectRepo
	client   provider.Client
	log      *zap.Logger
	maxChars int
	codec    tokenizer.Codec
}

func NewChatService(threads repo.ThreadRepo, messages repo.MessageRepo, projects repo.ProjectRepo, client provider.Client, log *zap.Logger, cfg *config.Config) ChatService {
	// Token estimates are advisory; a missing codec just leaves user
	// message counters at zero until run usage arrives.
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Warn("tokenizer unavailable", zap.Error(err))
	}
	return &chatService{
		threads:  threads,
		messages: messages,
		projects: projects,
		client:   client,
		log:      log,
		maxChars: cfg.Chat.MaxMessageChars,
		codec:    codec,
	}
}

// CreateThread opens a conversation in a project. Closed (archived or
// completed) projects reject new threads.
func (s *chatService) CreateThread(ctx context.Context, projectID, userID uuid.UUID, title string) (*model.Thread, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project", ErrNotFound)
		}
		return nil, err
	}
	if project.IsClosed() {
		return nil, ErrProjectClosed
	}

	thread := &model.Thread{
		ProjectID:   projectID,
		AssistantID: project.AssistantID,
		CreatorID:   userID,
		Title:       title,
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

func (s *chatService) ListThreads(ctx context.Context, projectID uuid.UUID) ([]*model.Thread, error) {
	return s.threads.ListForProject(ctx, projectID)
}

func (s *chatService) GetThread(ctx context.Context, threadID uuid.UUID) (*model.Thread, error) {
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: thread", ErrNotFound)
		}
		return nil, err
	}
	return thread, nil
}

func (s *chatService) RenameThread(ctx context.Context, threadID uuid.UUID, title string) error {
	if title == "" {
		return fmt.Errorf("%w: title is empty", ErrValidation)
	}
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return err
	}
	return s.threads.Rename(ctx, threadID, title)
}

// DeleteThread removes the local thread only. The provider twin is left in
// place; its identity is never reused.
func (s *chatService) DeleteThread(ctx context.Context, threadID uuid.UUID) error {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return err
	}
	return s.threads.Delete(ctx, threadID)
}

// ListMessages returns one page of the thread's history, oldest first. The
// cursor encodes the last row of the previous page so listings stay stable
// while new messages arrive.
func (s *chatService) ListMessages(ctx context.Context, threadID uuid.UUID, cursor string, limit int) (*MessagePage, error) {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultMessagePageSize
	}
	if limit > maxMessagePageSize {
		limit = maxMessagePageSize
	}

	var after time.Time
	var afterID uuid.UUID
	if cursor != "" {
		var err error
		after, afterID, err = paging.DecodeCursor(cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	msgs, err := s.messages.ListForThreadAfter(ctx, threadID, after, afterID, limit)
	if err != nil {
		return nil, err
	}

	page := &MessagePage{Messages: msgs}
	if len(msgs) == limit {
		last := msgs[len(msgs)-1]
		page.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}
	return page, nil
}

// SendMessage appends the user's message and dispatches one assistant turn.
// A provider failure before the run starts surfaces as-is: the caller must
// not assume a run exists. Local state committed before the failing remote
// call is kept.
func (s *chatService) SendMessage(ctx context.Context, threadID, userID uuid.UUID, content string) (*SendMessageResult, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", ErrValidation)
	}
	if s.maxChars > 0 && len(content) > s.maxChars {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, s.maxChars)
	}

	thread, err := s.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	if thread.AssistantID == nil {
		// The thread may predate provisioning; pick the assistant up from
		// the project when it has since appeared.
		project, err := s.projects.GetByID(ctx, thread.ProjectID)
		if err != nil {
			return nil, err
		}
		if project.AssistantID == nil {
			return nil, ErrNotProvisioned
		}
		thread.AssistantID = project.AssistantID
	}
	assistant, err := s.projects.GetAssistant(ctx, *thread.AssistantID)
	if err != nil {
		return nil, err
	}

	// The remote twin is created lazily so thread creation never depends on
	// provider availability.
	if thread.ProviderThreadID == "" {
		remote, err := s.client.CreateThread(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.threads.SetProviderThreadID(ctx, thread.ID, remote.ID); err != nil {
			return nil, err
		}
		thread.ProviderThreadID = remote.ID
	}

	msg := &model.Message{
		ThreadID:     thread.ID,
		Role:         model.RoleUserMessage,
		Content:      content,
		PromptTokens: s.estimateTokens(content),
	}
	msg.TotalTokens = msg.PromptTokens

	remoteMsg, err := s.client.CreateMessage(ctx, thread.ProviderThreadID, model.RoleUserMessage, content)
	if err != nil {
		return nil, err
	}
	msg.ProviderMessageID = &remoteMsg.ID
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	run, err := s.client.CreateRun(ctx, thread.ProviderThreadID, assistant.ProviderID)
	if err != nil {
		// The user message is already persisted; the turn never started.
		return nil, err
	}

	return &SendMessageResult{
		Message: msg,
		Run: RunHandle{
			RunID:    run.ID,
			ThreadID: thread.ProviderThreadID,
			Status:   run.Status,
		},
	}, nil
}

// CheckRunStatus is a single poll with no internal wait: callers re-invoke
// until they observe a terminal status. On completion it harvests the run's
// messages, persisting each at most once by provider message id, and applies
// the run usage to the thread totals only when new rows were inserted - so
// repeated polls of a finished run return the same set without duplicates.
func (s *chatService) CheckRunStatus(ctx context.Context, threadID uuid.UUID, runID string) (*RunStatusResult, error) {
	thread, err := s.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.ProviderThreadID == "" {
		return nil, fmt.Errorf("%w: thread has no provider twin", ErrValidation)
	}

	run, err := s.client.RetrieveRun(ctx, thread.ProviderThreadID, runID)
	if err != nil {
		return nil, err
	}

	if run.Status != provider.RunStatusCompleted {
		if provider.IsTerminalRunStatus(run.Status) {
			// Failed, cancelled or requires_action: nothing to harvest.
			s.log.Warn("run finished without output",
				zap.String("run_id", runID),
				zap.String("status", run.Status))
		}
		return &RunStatusResult{Status: run.Status}, nil
	}

	remoteMsgs, err := s.client.ListMessages(ctx, thread.ProviderThreadID, runID)
	if err != nil {
		return nil, err
	}

	inserted := false
	for _, rm := range remoteMsgs {
		if rm.Role != model.RoleAssistantMessage {
			continue
		}
		providerID := rm.ID
		msg := &model.Message{
			ThreadID:          thread.ID,
			Role:              model.RoleAssistantMessage,
			Content:           rm.PlainText(),
			ProviderMessageID: &providerID,
			RunID:             runID,
		}
		if run.Usage != nil {
			msg.CompletionTokens = run.Usage.CompletionTokens
			msg.TotalTokens = run.Usage.CompletionTokens
		}
		created, err := s.messages.CreateIfAbsent(ctx, msg)
		if err != nil {
			return nil, err
		}
		inserted = inserted || created
	}

	if inserted && run.Usage != nil {
		if err := s.threads.AddTokenUsage(ctx, thread.ID,
			run.Usage.PromptTokens, run.Usage.CompletionTokens, run.Usage.TotalTokens); err != nil {
			return nil, err
		}
	}

	msgs, err := s.messages.ListForRun(ctx, thread.ID, runID)
	if err != nil {
		return nil, err
	}
	return &RunStatusResult{Status: run.Status, Messages: msgs}, nil
}

func (s *chatService) estimateTokens(content string) int {
	if s.codec == nil {
		return 0
	}
	n, err := s.codec.Count(content)
	if err != nil {
		return 0
	}
	return n
}
